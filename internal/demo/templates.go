package demo

import "html/template"

var pages = template.Must(template.New("pages").Parse(`
{{define "layout"}}<!DOCTYPE html>
<html>
<head>
  <title>{{.Title}}</title>
  <style>
    body {
        font-family: arial, helvetica, sans;
    }
  </style>
</head>
<body>
{{.Body}}
</body>
</html>{{end}}

{{define "index"}}<h1>Examples</h1>
<ul>
{{range .Examples}}  <li><a href="/{{.Name}}">{{.Title}}</a> - {{.Description}}</li>
{{end}}</ul>
{{if .SignedIn}}<p>You are signed in. <a href="/oauth/signout">Sign out</a></p>
{{else}}<p><a href="/oauth/">Sign in with Stack Exchange</a></p>
{{end}}{{end}}

{{define "users-form"}}<form>Enter a user ID on Stack Overflow: <input type="text" name="id" /> <input type="submit" /></form>{{end}}

{{define "questions"}}<h1>Recent questions (page {{.Page}})</h1>
<ol>
{{range .Questions}}  <li>[{{.Score}}] <a href="{{.Link}}">{{.Title}}</a></li>
{{end}}</ol>
{{with .Next}}<p><a href="?page={{.}}">Next page</a></p>{{end}}{{end}}

{{define "token"}}<p>Scope: {{.Scope}}</p>
<p>Expires: {{.Expires}}</p>{{end}}

{{define "message"}}<p>{{.Message}}</p>{{end}}

{{define "not-found"}}<h1>Not Found</h1>
<p>The page you have requested (<code>{{.Path}}</code>) was not found on this server.</p>{{end}}

{{define "error"}}<h1>Internal Server Error</h1>
<p>An exception has occurred:</p>
<pre>{{.Error}}</pre>{{end}}
`))
