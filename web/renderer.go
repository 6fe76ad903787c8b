// Package web предоставляет HTTP-интерфейс и отображение панели расписания
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/Vaflel/bell-ticker/usecases"
)

//go:embed templates/index.html static/*
var assets embed.FS

// dashboardTemplate блок панели: счётчики, прогресс и список уроков.
// Идентификаторы элементов использует static/app.js для обновления без перезагрузки.
const dashboardTemplate = `
<section id="dashboard" class="state-{{.State}}" data-schedule="{{.Schedule}}">
	<h2 id="schedule-title">{{.ScheduleTitle}}</h2>

	<div id="panel-weekend" class="panel"{{if ne .State "weekend"}} hidden{{end}}>
		<p class="headline">Happy weekend!</p>
		<p>Next school day starts in <span class="js-until-school">{{.UntilSchool}}</span></p>
	</div>

	<div id="panel-over" class="panel"{{if ne .State "over"}} hidden{{end}}>
		<p class="headline">School's out!</p>
		<p>Next school day starts in <span class="js-until-school">{{.UntilSchool}}</span></p>
	</div>

	<div id="panel-before" class="panel"{{if ne .State "before"}} hidden{{end}}>
		<p class="headline">School hasn't started yet</p>
		<p>School starts in <span class="js-until-school">{{.UntilSchool}}</span></p>
	</div>

	<div id="panel-session" class="panel"{{if ne .State "session"}} hidden{{end}}>
		<div class="current">
			<p class="label">Current</p>
			<p id="current-name" class="headline">{{.CurrentName}}</p>
			<p id="current-range" class="muted">{{.CurrentRange}}</p>
			<p class="countdown"><span id="remaining">{{.Remaining}}</span> <span class="muted">remaining</span></p>
			<div class="progress"><div id="progress-bar" class="progress-bar" style="width: {{percent .Progress}}"></div></div>
		</div>
		<div class="next">
			<p class="label">Next</p>
			<p id="next-name">{{.NextName}}</p>
			<p id="next-range" class="muted">{{.NextRange}}</p>
			<p class="countdown"><span id="until-next">{{.UntilNext}}</span> <span class="muted">until start</span></p>
		</div>
	</div>

	<table id="periods" class="schedule-table">
		<tr>
			<th>Period</th>
			<th>Time</th>
		</tr>
		{{range .Periods}}
		<tr{{if .Active}} class="active"{{end}}>
			<td>{{.Name}}</td>
			<td>{{.Range}}</td>
		</tr>
		{{end}}
	</table>
</section>
`

var funcs = template.FuncMap{
	"percent": func(p float64) string {
		return fmt.Sprintf("%.1f%%", p)
	},
}

var dashboard = template.Must(template.New("dashboard").Funcs(funcs).Parse(dashboardTemplate))

// RenderDashboard генерирует HTML-представление панели для первой отрисовки страницы
func RenderDashboard(d usecases.Dashboard) (string, error) {
	var buf bytes.Buffer
	if err := dashboard.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
