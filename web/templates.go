package web

const layoutTemplate = `{{define "header"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>nil layout</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; margin: 0; color: #222; }
nav { background: #1f2933; color: #fff; padding: 12px 24px; display: flex; gap: 24px; align-items: baseline; }
nav a { color: #cbd2d9; text-decoration: none; }
nav a.active { color: #fff; font-weight: 600; }
nav .brand { font-weight: 700; color: #fff; }
nav .params { margin-left: auto; font-size: 12px; color: #9aa5b1; }
main { padding: 24px; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #e4e7eb; }
pre { background: #f5f7fa; padding: 12px; overflow-x: auto; }
.kind-value { color: #2f8132; }
.kind-type { color: #2186eb; }
.kind-error { color: #ba2525; }
.empty { color: #7b8794; font-style: italic; }
</style>
</head>
<body>
<nav>
<span class="brand">nil</span>
<a href="/ui" {{if eq .NavActive "dashboard"}}class="active"{{end}}>Definitions</a>
<span class="params">{{.Layout}}</span>
</nav>
<main>
{{end}}
{{define "footer"}}</main>
</body>
</html>
{{end}}`

var pageTemplates = map[string]string{
	"dashboard.html": `{{template "header" .}}
<h1>Definitions</h1>
<p>{{len .Data.Definitions}} definition(s), {{.Data.Evaluations}} evaluation(s), {{.Data.Failed}} failed</p>
{{if .Data.Definitions}}
<table>
<tr><th>Name</th><th>Revision</th><th>Bindings</th><th>Updated</th><th>Description</th></tr>
{{range .Data.Definitions}}
<tr>
<td><a href="/ui/definitions/{{.Name}}">{{.Name}}</a></td>
<td>{{.RevisionID}}</td>
<td>{{if .Error}}<span class="kind-error">{{truncate .Error 80}}</span>{{else}}{{.Bindings}}{{end}}</td>
<td title="{{formatTime .UpdateTime}}">{{timeAgo .UpdateTime}}</td>
<td>{{.Description}}</td>
</tr>
{{end}}
</table>
{{else}}
<p class="empty">No definitions stored</p>
{{end}}
{{template "footer" .}}`,

	"definition_detail.html": `{{template "header" .}}
{{with .Data}}
<h1>{{.Definition.Name}}</h1>
<p>Revision {{.Definition.RevisionID}}, updated {{formatTime .Definition.UpdateTime}}</p>
{{if .Error}}<p class="kind-error">{{.Error}}</p>{{end}}
{{if .Bindings}}
<h2>Bindings</h2>
<table>
<tr><th>Name</th><th>Kind</th><th>Value</th><th>Size</th><th>Align</th><th>Len</th></tr>
{{range .Bindings}}
<tr>
<td>{{.Name}}</td>
<td class="{{kindClass .Kind}}">{{.Kind}}</td>
{{if .Layout}}<td>{{.Type}}</td><td>{{deref .Layout.Size}}</td><td>{{.Layout.Align}}</td><td>{{if .Layout.Len}}{{deref .Layout.Len}}{{end}}</td>
{{else if .Error}}<td>{{.Type}}</td><td colspan="3" class="kind-error">{{.Error}}</td>
{{else}}<td>{{.Value}}</td><td></td><td></td><td></td>{{end}}
</tr>
{{end}}
</table>
{{end}}
<h2>Source ({{countLines .Definition.Source}} lines)</h2>
<pre>{{.Definition.Source}}</pre>
<h2>Recent evaluations</h2>
{{if .Evaluations}}
<table>
<tr><th>Source</th><th>Result</th><th>When</th></tr>
{{range .Evaluations}}
<tr>
<td><code>{{truncate .Source 60}}</code></td>
<td>{{if .Error}}<span class="kind-error">{{.Error.Kind}}: {{.Error.Message}}</span>{{else}}<span class="{{kindClass .Kind}}">{{.Result}}</span>{{end}}</td>
<td>{{timeAgo .CreateTime}}</td>
</tr>
{{end}}
</table>
<p><a href="/ui/definitions/{{.Definition.Name}}/evaluations">All evaluations</a></p>
{{else}}
<p class="empty">No evaluations yet</p>
{{end}}
{{end}}
{{template "footer" .}}`,

	"evaluation_list.html": `{{template "header" .}}
{{with .Data}}
<h1>Evaluations of <a href="/ui/definitions/{{.Definition.Name}}">{{.Definition.Name}}</a></h1>
{{if .Evaluations}}
<table>
<tr><th>Source</th><th>Revision</th><th>Result</th><th>Time</th></tr>
{{range .Evaluations}}
<tr>
<td><code>{{.Source}}</code></td>
<td>{{.RevisionID}}</td>
<td>{{if .Error}}<span class="kind-error">{{.Error.Kind}}: {{.Error.Message}}</span>{{else}}<span class="{{kindClass .Kind}}">{{.Result}}</span>{{end}}</td>
<td>{{formatTime .CreateTime}}</td>
</tr>
{{end}}
</table>
{{else}}
<p class="empty">No evaluations yet</p>
{{end}}
{{end}}
{{template "footer" .}}`,
}
