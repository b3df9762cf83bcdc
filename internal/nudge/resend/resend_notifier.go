package resend

import (
	"bytes"
	"context"
	"html/template"

	"github.com/resend/resend-go/v2"
)

const defaultFrom = "onboarding@resend.dev"

type ResendNotifier struct {
	ApiKey string
	Email  string
	From   string
}

var emailTemplate = template.Must(template.New("email").Parse(`
<p>The following habit streaks are expiring within the next {{.Hours}} hours:</p>
<ul>
{{range .Habits}}
  <li>{{.}}</li>
{{end}}
</ul>
`))

// Render returns the HTML body for a nudge email.
func Render(habits []string, hoursTillExpiry int) (string, error) {
	data := struct {
		Habits []string
		Hours  int
	}{
		Habits: habits,
		Hours:  hoursTillExpiry,
	}
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *ResendNotifier) SendNudge(ctx context.Context, habits []string, hoursTillExpiry int) error {
	body, err := Render(habits, hoursTillExpiry)
	if err != nil {
		return err
	}

	from := r.From
	if from == "" {
		from = defaultFrom
	}
	client := resend.NewClient(r.ApiKey)
	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{r.Email},
		Subject: "Streaks are expiring soon",
		Html:    body,
	}

	_, err = client.Emails.SendWithContext(ctx, params)
	return err
}
