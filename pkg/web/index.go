package web

import "github.com/gofiber/fiber/v2"

// handleIndex serves a minimal preview page
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexHTML)
}

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>facemark</title>
<style>
body { background: #202226; color: #ddd; font-family: sans-serif; }
#video { width: 640px; height: 480px; background: #080808; object-fit: contain; }
button { margin-right: 8px; }
</style>
</head>
<body>
<img id="video" alt="">
<p id="status">connecting...</p>
<label><input type="checkbox" id="boxes"> Show face boxes</label>
<label><input type="checkbox" id="points"> Show landmarks</label>
<p>
<button id="start">Start camera</button>
<button id="stop">Stop camera</button>
</p>
<script>
const $ = (id) => document.getElementById(id);
const base = location.host;

function render(st) {
  $("status").textContent = st.state === "running"
    ? "camera running | faces detected: " + st.faces
    : (st.error ? "error: " + st.error : (st.message || "idle"));
  $("start").disabled = st.state === "running";
  $("stop").disabled = st.state !== "running";
}

async function post(path) {
  const res = await fetch(path, { method: "POST" });
  const body = await res.json();
  render(body.status || body);
}

async function setOverlay(patch) {
  await fetch("/api/overlay", {
    method: "PUT",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify(patch),
  });
}

fetch("/api/overlay").then((r) => r.json()).then((o) => {
  $("boxes").checked = o.draw_boxes;
  $("points").checked = o.draw_points;
});

$("start").onclick = () => post("/api/session/start");
$("stop").onclick = () => post("/api/session/stop");
$("boxes").onchange = (e) => setOverlay({ draw_boxes: e.target.checked });
$("points").onchange = (e) => setOverlay({ draw_points: e.target.checked });

const status = new WebSocket("ws://" + base + "/ws/status");
status.onmessage = (e) => render(JSON.parse(e.data));

const camera = new WebSocket("ws://" + base + "/ws/camera");
camera.binaryType = "blob";
let current = null;
camera.onmessage = (e) => {
  const url = URL.createObjectURL(e.data);
  $("video").src = url;
  if (current) URL.revokeObjectURL(current);
  current = url;
};
</script>
</body>
</html>
`
