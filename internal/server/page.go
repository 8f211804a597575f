package server

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>typereg{{if .Selected}}: {{.Selected}}{{end}}</title>
  <style>
    *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }

    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      display: flex;
      min-height: 100vh;
      background-color: #f8f9fa;
      color: #212529;
    }

    @media (prefers-color-scheme: dark) {
      body { background-color: #1a1a2e; color: #e0e0e0; }
      .sidebar { background-color: #23233a; border-color: #444; }
      .sidebar a { color: #9ecbff; }
      .controls button { background-color: #2d2d44; color: #e0e0e0; border-color: #444; }
    }

    .sidebar {
      width: 22rem;
      padding: 1rem;
      overflow-y: auto;
      border-right: 1px solid #dee2e6;
      background-color: #ffffff;
    }

    .sidebar h2 { font-size: 1rem; margin-bottom: 0.5rem; }
    .sidebar input { width: 100%; padding: 0.3rem; margin-bottom: 0.5rem; }
    .sidebar ul { list-style: none; font-size: 0.85rem; }
    .sidebar li { padding: 0.15rem 0; word-break: break-all; }
    .sidebar li.selected { font-weight: 700; }
    .sidebar a { color: #0b5ed7; text-decoration: none; }

    main { flex: 1; padding: 1rem; display: flex; flex-direction: column; align-items: center; }
    h1 { margin: 0.5rem 0 1rem; font-size: 1.3rem; font-weight: 600; }

    .controls { display: flex; gap: 0.5rem; margin-bottom: 1rem; }
    .controls button {
      padding: 0.4rem 0.9rem;
      font-size: 0.9rem;
      border: 1px solid #ccc;
      border-radius: 6px;
      background-color: #ffffff;
      cursor: pointer;
    }

    .diagram-container { width: 100%; transform-origin: top center; transition: transform 0.2s ease; }
    .empty { margin-top: 3rem; color: #6c757d; }
  </style>
</head>
<body>
  <nav class="sidebar">
    <h2>Types ({{len .Names}})</h2>
    <input id="type-filter" type="search" placeholder="Filter types">
    <ul id="type-list">
      {{range .Names}}<li{{if eq . $.Selected}} class="selected"{{end}}><a href="/?type={{.}}">{{.}}</a></li>
      {{end}}
    </ul>
  </nav>

  <main>
    {{if .Selected}}
    <h1>{{.Selected}}</h1>
    <div class="controls">
      <button id="zoom-in" title="Zoom In">+ Zoom In</button>
      <button id="zoom-out" title="Zoom Out">- Zoom Out</button>
      <button id="zoom-reset" title="Reset Zoom">Reset</button>
      <button id="copy-src" title="Copy Mermaid Source">Copy Mermaid Source</button>
    </div>
    <div class="diagram-container" id="diagram-container">
      <pre class="mermaid">{{.Mermaid}}</pre>
    </div>
    {{else if .Error}}
    <p class="empty">{{.Error}}</p>
    {{else}}
    <p class="empty">Select a type to view its hierarchy.</p>
    {{end}}
  </main>

  <script src="https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.min.js"></script>
  <script>
    mermaid.initialize({ startOnLoad: true, theme: 'base' });

    document.getElementById('type-filter').addEventListener('input', function(e) {
      var q = e.target.value.toLowerCase();
      document.querySelectorAll('#type-list li').forEach(function(li) {
        li.style.display = li.textContent.toLowerCase().indexOf(q) >= 0 ? '' : 'none';
      });
    });

    (function() {
      var container = document.getElementById('diagram-container');
      if (!container) { return; }
      var scale = 1;

      function applyZoom() { container.style.transform = 'scale(' + scale + ')'; }

      document.getElementById('zoom-in').addEventListener('click', function() {
        scale = Math.min(10, scale + 0.15);
        applyZoom();
      });
      document.getElementById('zoom-out').addEventListener('click', function() {
        scale = Math.max(0.1, scale - 0.15);
        applyZoom();
      });
      document.getElementById('zoom-reset').addEventListener('click', function() {
        scale = 1;
        applyZoom();
      });
      document.getElementById('copy-src').addEventListener('click', function() {
        var src = {{.Mermaid}};
        navigator.clipboard.writeText(src).then(function() {
          var btn = document.getElementById('copy-src');
          var orig = btn.textContent;
          btn.textContent = 'Copied!';
          setTimeout(function() { btn.textContent = orig; }, 1500);
        });
      });
    })();
  </script>
</body>
</html>
`
