package handler

import "net/http"

// HandleDocs serves a static API reference at GET /. Kept inline: the
// service has no template or asset pipeline and one page does not need one.
func HandleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(docsHTML))
}

const docsHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>cpp-engine API</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
code, pre { background: #f4f4f4; border-radius: 4px; }
code { padding: 0.1rem 0.3rem; }
pre { padding: 0.8rem; overflow-x: auto; }
h2 { border-bottom: 1px solid #ddd; padding-bottom: 0.3rem; }
</style>
</head>
<body>
<h1>cpp-engine</h1>
<p>Compile and run C++ snippets over HTTP. All request and response bodies are JSON.</p>

<h2>POST /api/execute</h2>
<p>Compile the submitted source and, if compilation succeeds, run it with the given stdin.</p>
<pre>{
  "code": "#include &lt;iostream&gt;\nint main(){ std::cout &lt;&lt; \"hi\"; }",
  "input": "",
  "options": {
    "compiler": "g++",
    "standard": "c++20",
    "optimization": "O2",
    "debug": false,
    "flags": [],
    "timeout_seconds": 10,
    "memory_mb": 512,
    "sandbox": true
  }
}</pre>
<p>All options are optional; omitted fields use server defaults. The response
reports exit code, stdout/stderr, compiler diagnostics, timing, peak memory,
and whether the run was sandboxed or hit a resource limit.</p>

<h2>POST /api/compile</h2>
<p>Compile only — returns diagnostics without running anything.</p>

<h2>POST /api/analyze</h2>
<p>Heuristic static checks (unsafe functions, new/delete balance, loop
pitfalls) plus line metrics and a complexity estimate. Nothing is compiled.</p>

<h2>GET /api/runs &middot; GET /api/runs/{id}</h2>
<p>Run history, newest first. <code>?limit=</code> and <code>?offset=</code>
paginate. Only metadata is stored; submitted source is never persisted.</p>

<h2>GET /health</h2>
<p>Toolchain and sandbox status. Returns 503 when the primary compiler is missing.</p>

<h2>GET /api/metrics</h2>
<p>Process uptime and the number of requests served.</p>

<h2>POST /api/token</h2>
<p>Exchange the configured API key for a bearer token (only when the server
is started with authentication enabled):</p>
<pre>{"api_key": "..."}  &rarr;  {"token": "...", "expires_in": 3600}</pre>
</body>
</html>
`
