package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/screen-powersave/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Screen Powersave</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Screen Powersave</h1>

<h2>Screen</h2>
<table>
<tr><th>Screen</th><td id="screen-state" class="{{if not .Machine.Started}}unknown{{else if eq .Screen "ON"}}on{{else}}off{{end}}">{{if .Machine.Started}}{{.Screen}}{{else}}UNKNOWN{{end}}</td></tr>
<tr><th>Configured</th><td>{{yesno .Machine.Started}}</td></tr>
<tr><th>Forced off</th><td>{{yesno .Machine.ForcedDown}}</td></tr>
<tr><th>Modules hidden</th><td>{{yesno .Machine.Hidden}}</td></tr>
<tr><th>Profile</th><td>{{if .Machine.Profile}}{{.Machine.Profile}}{{else}}-{{end}}</td></tr>
<tr><th>Timeout</th><td>{{if .Machine.TimerArmed}}{{.Machine.Delay}}s{{else}}disabled{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}-{{end}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>Screen on</th><td>{{.Machine.Counts.On}}</td></tr>
<tr><th>Screen off</th><td>{{.Machine.Counts.Off}}</td></tr>
<tr><th>Presence</th><td>{{.Presence.Triggers}}</td></tr>
<tr><th>Resume</th><td>{{.Wakes}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Presence pin</th><td>{{if .Presence.Enabled}}{{.Config.PresencePin}} (debounce {{.Config.DebounceMs}}ms, poll {{.Config.PollMs}}ms){{else}}disabled{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Screen string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Screen:   string(snap.Machine.Screen),
	}
	return indexTmpl.Execute(w, data)
}
