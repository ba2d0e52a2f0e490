package livereload

// Script is the client snippet served at /livereload.js. Full reloads
// re-navigate; the css target swaps stylesheet hrefs in place.
const Script = `(() => {
  if (window.__LOOM_LR__) return;
  window.__LOOM_LR__ = true;
  function refreshCSS() {
    document.querySelectorAll('link[rel="stylesheet"]').forEach((link) => {
      const url = new URL(link.href);
      url.searchParams.set('v', Date.now());
      link.href = url.toString();
    });
  }
  function connect() {
    const es = new EventSource('/livereload');
    let first = true;
    let current = null;
    es.onmessage = (e) => {
      try {
        const msg = JSON.parse(e.data);
        if (msg.target === 'css') { refreshCSS(); return; }
        if (first) { current = msg.hash; first = false; return; }
        if (msg.hash && msg.hash !== current) { location.reload(); }
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`
