package server

import (
	"net/http"

	"go.uber.org/zap"
)

// handleIndex serves the canvas page. The page keeps no state of its own: it
// redraws whatever /api/board returns after every action.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(indexPage)); err != nil {
		s.logger.Warn("Failed to write page", zap.Error(err))
	}
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>dollargraph</title>
  <style>
    body { font-family: 'Helvetica Neue', Arial, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; color: #333; }
    .layout { display: flex; gap: 20px; align-items: flex-start; }
    .toolbar { display: flex; flex-wrap: wrap; gap: 6px; margin-bottom: 10px; }
    .btn { background: #4285f4; color: white; border: none; padding: 8px 14px; border-radius: 4px; cursor: pointer; font-size: 14px; }
    .btn:disabled { background: #bbb; cursor: default; }
    .btn.active { background: #1a5fd0; box-shadow: inset 0 0 0 2px #0b3d91; }
    canvas { background: white; border: 1px solid #ccc; border-radius: 4px; }
    .panel { background: white; padding: 16px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); min-width: 220px; }
    .panel h2 { margin-top: 0; font-size: 18px; }
    #status { margin-top: 10px; min-height: 1.2em; color: #b00020; }
    #hover { position: absolute; pointer-events: none; background: rgba(0,0,0,0.75); color: white; padding: 4px 8px; border-radius: 4px; font-size: 12px; display: none; }
  </style>
</head>
<body>
  <div class="toolbar" id="toolbar"></div>
  <div class="toolbar">
    <label>Value <input id="value" type="number" value="0" style="width: 80px"></label>
    <button class="btn" id="cancel">Cancel</button>
    <button class="btn" id="arrange">Arrange</button>
    <button class="btn" id="save">Save board</button>
    <a class="btn" href="/api/export?format=svg&download=1">Export SVG</a>
  </div>
  <div class="layout">
    <canvas id="board" width="1000" height="800"></canvas>
    <div class="panel">
      <h2>Board</h2>
      <div id="info"></div>
      <div id="status"></div>
    </div>
  </div>
  <div id="hover"></div>
  <script>
    const modes = [
      ["new_vertex", "New vertex"], ["delete_vertex", "Delete vertex"],
      ["new_edge", "New edge"], ["delete_edge", "Delete edge"],
      ["give_take", "Give / take"], ["shortest_path", "Shortest path"]
    ];
    const canvas = document.getElementById("board");
    const ctx = canvas.getContext("2d");
    const toolbar = document.getElementById("toolbar");
    const statusEl = document.getElementById("status");
    const hoverEl = document.getElementById("hover");
    let view = null;

    for (const [name, label] of modes) {
      const b = document.createElement("button");
      b.className = "btn";
      b.id = "mode-" + name;
      b.textContent = label;
      b.onclick = () => post("/api/mode", {mode: name}).then(draw);
      toolbar.appendChild(b);
    }

    async function call(method, url, body) {
      const res = await fetch(url, {
        method,
        headers: {"Content-Type": "application/json"},
        body: body === undefined ? undefined : JSON.stringify(body)
      });
      const data = res.status === 204 ? null : await res.json();
      if (!res.ok) {
        statusEl.textContent = data && data.message ? data.message : res.statusText;
        throw new Error(statusEl.textContent);
      }
      statusEl.textContent = "";
      return data;
    }
    const post = (url, body) => call("POST", url, body === undefined ? {} : body);

    function roleOf(id) {
      const p = view.path;
      if (p && p.vertices.length) {
        if (id === p.vertices[0]) return "source";
        if (id === p.vertices[p.vertices.length - 1]) return "destination";
        if (p.vertices.includes(id)) return "path";
      }
      if (view.selected && view.selected.includes(id)) return "selected";
      return "";
    }
    const fills = {source: "cyan", destination: "yellow", path: "purple", selected: "blue", "": "green"};

    function onPath(e) {
      const v = view.path ? view.path.vertices : [];
      for (let i = 0; i + 1 < v.length; i++) {
        if ((v[i] === e.source && v[i + 1] === e.target) || (v[i] === e.target && v[i + 1] === e.source)) return true;
      }
      return false;
    }

    function draw(next) {
      if (next) view = next.view || next;
      if (!view || !view.board) return;
      const board = view.board, r = view.radius;
      canvas.width = board.width;
      canvas.height = board.height;
      ctx.clearRect(0, 0, canvas.width, canvas.height);
      const at = {};
      for (const v of board.vertices) at[v.id] = v;

      ctx.lineWidth = 3;
      for (const e of board.edges) {
        const a = at[e.source], b = at[e.target];
        ctx.strokeStyle = onPath(e) ? "purple" : "blue";
        ctx.beginPath(); ctx.moveTo(a.x, a.y); ctx.lineTo(b.x, b.y); ctx.stroke();
      }
      ctx.font = "14px sans-serif";
      ctx.textAlign = "center";
      ctx.textBaseline = "middle";
      for (const e of board.edges) {
        const a = at[e.source], b = at[e.target];
        const mx = (a.x + b.x) / 2, my = (a.y + b.y) / 2, label = String(e.weight);
        const w = ctx.measureText(label).width + 8;
        ctx.fillStyle = "#908b8b"; ctx.fillRect(mx - w / 2, my - 10, w, 20);
        ctx.fillStyle = "black"; ctx.fillText(label, mx, my);
      }
      for (const v of board.vertices) {
        ctx.beginPath(); ctx.arc(v.x, v.y, r, 0, 2 * Math.PI);
        ctx.fillStyle = fills[roleOf(v.id)]; ctx.fill();
        ctx.lineWidth = 2; ctx.strokeStyle = "black"; ctx.stroke();
        ctx.fillStyle = "white"; ctx.fillText(String(v.id), v.x, v.y);
        ctx.fillStyle = v.tokens < 0 ? "red" : "black"; ctx.fillText(String(v.tokens), v.x, v.y - r - 9);
      }

      for (const [name] of modes) {
        const b = document.getElementById("mode-" + name);
        b.disabled = !view.available.includes(name);
        b.classList.toggle("active", view.mode === name);
      }
      const s = view.stats;
      let html = "<div>Vertices: " + s.vertices + "</div><div>Edges: " + s.edges + "</div>" +
        "<div>Min degree: " + s.min_degree + "</div><div>Max degree: " + s.max_degree + "</div>" +
        "<div>Total tokens: " + s.total_tokens + "</div><div>Genus: " + s.genus + "</div>" +
        "<div>Debtors: " + (s.debtors && s.debtors.length ? s.debtors.join(", ") : "none") + "</div>" +
        "<div>Mode: " + view.mode + "</div>";
      if (view.path) html += "<div>Path: " + view.path.vertices.join(" - ") + " (total " + view.path.total + ")</div>";
      document.getElementById("info").innerHTML = html;
    }

    function point(ev) {
      const rect = canvas.getBoundingClientRect();
      return {x: ev.clientX - rect.left, y: ev.clientY - rect.top};
    }
    function click(ev, secondary) {
      const p = point(ev);
      const value = parseInt(document.getElementById("value").value || "0", 10);
      post("/api/click", {x: p.x, y: p.y, secondary, value}).then(draw).catch(() => refresh());
    }
    canvas.addEventListener("click", ev => click(ev, ev.shiftKey));
    canvas.addEventListener("contextmenu", ev => { ev.preventDefault(); click(ev, true); });
    canvas.addEventListener("mousemove", async ev => {
      const p = point(ev);
      const res = await fetch("/api/hover?x=" + p.x + "&y=" + p.y);
      const h = await res.json();
      if (!h.found) { hoverEl.style.display = "none"; return; }
      const v = h.vertex;
      hoverEl.textContent = "#" + v.id + (v.label ? " " + v.label : "") + "  tokens " + v.tokens + "  degree " + v.degree;
      hoverEl.style.left = (ev.pageX + 12) + "px";
      hoverEl.style.top = (ev.pageY + 12) + "px";
      hoverEl.style.display = "block";
    });
    document.getElementById("cancel").onclick = () => post("/api/cancel").then(draw);
    document.getElementById("arrange").onclick = () => post("/api/arrange").then(draw);
    document.getElementById("save").onclick = () => post("/api/boards").then(s => { statusEl.textContent = "saved " + s.id; });
    document.addEventListener("keydown", ev => { if (ev.key === "Escape") post("/api/cancel").then(draw); });

    function refresh() { return call("GET", "/api/board").then(draw); }
    refresh();
  </script>
</body>
</html>
`
