package web

// pageTemplates holds the three HTML views. The markup mirrors the layout of
// the desktop front end: question in, answer out, retrieved context on demand.
const pageTemplates = `
{{define "form"}}<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="UTF-8">
<title>Asisten BPJS Kesehatan</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 2rem auto; padding: 0 1rem; }
textarea { width: 100%; height: 4rem; }
.answer { background: #f0f7f0; padding: 1rem; margin-top: 1rem; white-space: pre-wrap; }
.failed { background: #f7f0f0; }
details { margin-top: 0.5rem; color: #555; }
nav a { margin-right: 1rem; }
</style>
</head>
<body>
<h1>Asisten BPJS Kesehatan</h1>
<nav><a href="/">Formulir</a><a href="/chat">Chat</a><a href="/history">Riwayat</a></nav>
<form method="POST" action="/">
<p><label for="question">Masukkan Pertanyaan:</label></p>
<textarea id="question" name="question">{{.Question}}</textarea>
<p><button type="submit">Tanya</button></p>
</form>
{{if .Answer}}
<div class="answer{{if .Failed}} failed{{end}}">{{.Answer}}</div>
{{if .Context}}
<details><summary>Lihat konteks yang digunakan</summary>
{{range .Context}}<pre>{{.}}</pre>{{end}}
</details>
{{end}}
{{end}}
</body>
</html>{{end}}

{{define "chat"}}<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="UTF-8">
<title>Chatbot BPJS Kesehatan</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 2rem auto; padding: 0 1rem; }
#messages { border: 1px solid #ccc; min-height: 16rem; padding: 1rem; overflow-y: auto; max-height: 60vh; }
.msg { margin: 0.5rem 0; white-space: pre-wrap; }
.user { color: #225; font-weight: bold; }
.bot { color: #252; }
.error { color: #a22; }
form { display: flex; gap: 0.5rem; margin-top: 1rem; }
input { flex: 1; }
nav a { margin-right: 1rem; }
</style>
</head>
<body>
<h1>Chatbot BPJS Kesehatan</h1>
<nav><a href="/">Formulir</a><a href="/chat">Chat</a><a href="/history">Riwayat</a></nav>
<div id="messages">
{{range .}}<div class="msg user">{{.Question}}</div><div class="msg bot">{{.Answer}}</div>{{end}}
</div>
<form id="chat-form">
<input type="text" id="question" placeholder="Tanyakan seputar BPJS Kesehatan..." autocomplete="off" required>
<button type="submit">Kirim</button>
</form>
<script>
const form = document.getElementById('chat-form');
const messages = document.getElementById('messages');
form.addEventListener('submit', async (e) => {
  e.preventDefault();
  const input = document.getElementById('question');
  const question = input.value.trim();
  if (!question) return;
  input.value = '';
  append('user', question);
  const pending = append('bot', '...');
  try {
    const resp = await fetch('/api/chat', {
      method: 'POST',
      headers: {'Content-Type': 'application/json'},
      body: JSON.stringify({question})
    });
    const data = await resp.json();
    if (data.error) {
      pending.textContent = data.error;
      pending.className = 'msg error';
    } else {
      pending.textContent = data.answer;
    }
  } catch (err) {
    pending.textContent = 'Koneksi gagal.';
    pending.className = 'msg error';
  }
  messages.scrollTop = messages.scrollHeight;
});
function append(cls, text) {
  const div = document.createElement('div');
  div.className = 'msg ' + cls;
  div.textContent = text;
  messages.appendChild(div);
  messages.scrollTop = messages.scrollHeight;
  return div;
}
</script>
</body>
</html>{{end}}

{{define "history"}}<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="UTF-8">
<title>Riwayat Percakapan</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 2rem auto; padding: 0 1rem; }
.entry { border-bottom: 1px solid #ccc; padding: 0.5rem 0; white-space: pre-wrap; }
.q { font-weight: bold; }
nav a { margin-right: 1rem; }
</style>
</head>
<body>
<h1>Riwayat Percakapan</h1>
<nav><a href="/">Formulir</a><a href="/chat">Chat</a><a href="/history">Riwayat</a></nav>
{{if .}}
{{range .}}<div class="entry"><div class="q">Q: {{.Question}}</div><div>A: {{.Answer}}</div></div>{{end}}
{{else}}
<p>Belum ada percakapan.</p>
{{end}}
</body>
</html>{{end}}
`
