// Package mail renders transactional email bodies and delivers them.
package mail

import (
	"fmt"
	"html"
	"io"

	"github.com/valyala/fasttemplate"
)

// TemplateName identifies a transactional email.
type TemplateName string

const (
	TemplateWelcome        TemplateName = "welcome_on_signup"
	TemplateFoundADate     TemplateName = "found_a_date"
	TemplateInvite         TemplateName = "invite_to_join"
	TemplateForgotPassword TemplateName = "forgot_password"
	TemplateVerifyEmail    TemplateName = "verify_email"
)

// Rendered is a subject plus HTML body ready to send.
type Rendered struct {
	Subject string
	HTML    string
}

type emailTemplate struct {
	subject *fasttemplate.Template
	body    *fasttemplate.Template
}

// Renderer holds the parsed templates.
type Renderer struct {
	templates map[TemplateName]emailTemplate
}

const layout = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{title}} | Datifyy</title>
    <style>
        body { background-color: #fff5f8; font-family: 'Arial', sans-serif; margin: 0; padding: 0; color: #333; }
        .container { max-width: 600px; margin: 30px auto; background: #ffffff; border-radius: 12px; overflow: hidden; }
        .header { background: linear-gradient(135deg, #ff758c, #ff7eb3); padding: 20px; text-align: center; color: #fff; font-size: 24px; font-weight: bold; }
        .content { padding: 20px; text-align: center; }
        .content p { font-size: 16px; line-height: 1.6; color: #555; }
        .details { background: #ffebf0; padding: 12px 20px; border-radius: 8px; margin: 16px 0; }
        .button { background: #ff3366; color: #fff; padding: 12px 20px; text-decoration: none; font-size: 18px; border-radius: 8px; display: inline-block; margin-top: 20px; }
        .footer { padding: 15px; text-align: center; font-size: 14px; color: #777; background: #ffe4ea; border-top: 1px solid #ffb6c1; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">{{title}}</div>
        <div class="content">
`

const footer = `        </div>
        <div class="footer">With Love, <br> The Datifyy Team</div>
    </div>
</body>
</html>`

var sources = map[TemplateName][2]string{
	TemplateWelcome: {
		"Welcome to Datifyy, {{first_name}}!",
		`            <p>Hey {{first_name}},</p>
            <p>Welcome to Datifyy, where love finds its way. Your journey to meaningful connections starts now.</p>
            <p>Click below to explore and set up your profile:</p>
            <a href="{{app_url}}/get-started" class="button">Get Started</a>
            <p>If you have any questions, our support team is always here for you.</p>
`,
	},
	TemplateFoundADate: {
		"We found a date for you, {{first_name}}!",
		`            <p>Hey {{first_name}},</p>
            <p>Exciting news! We have found a match for you: {{partner_name}}.</p>
            <div class="details">
                Date: <strong>{{date}}</strong><br>
                Time: <strong>{{time}}</strong><br>
                Duration: <strong>{{duration}}</strong><br>
                Where: <strong>{{where}}</strong>
            </div>
            <p>Please confirm the date in the app so we can lock it in.</p>
            <a href="{{app_url}}/dates/{{date_id}}" class="button">View My Date</a>
`,
	},
	TemplateInvite: {
		"{{name}}, your invite to Datifyy is here",
		`            <p>Hey {{name}},</p>
            <p>You asked to be told when Datifyy opens its doors. Your spot is ready.</p>
            <p>Meet verified people, get curated dates and join live video dates.</p>
            <a href="{{app_url}}/signup?email={{email}}" class="button">Join Now for Free</a>
`,
	},
	TemplateForgotPassword: {
		"Reset your Datifyy password",
		`            <p>Hey {{first_name}},</p>
            <p>We heard that you need to reset your password. Use the link below within {{valid_for}}.</p>
            <a href="{{app_url}}/reset-password?token={{token}}" class="button">Reset Password</a>
            <p>If you did not request this, you can ignore this email.</p>
`,
	},
	TemplateVerifyEmail: {
		"Verify your email for Datifyy",
		`            <p>Hey {{first_name}},</p>
            <p>Please confirm that this is your email address.</p>
            <a href="{{app_url}}/verify-email?token={{token}}" class="button">Verify Email</a>
`,
	},
}

var titles = map[TemplateName]string{
	TemplateWelcome:        "Welcome to Datifyy!",
	TemplateFoundADate:     "Your Date is Ready!",
	TemplateInvite:         "Your Perfect Match Awaits",
	TemplateForgotPassword: "Reset Your Password",
	TemplateVerifyEmail:    "Verify Your Email",
}

// NewRenderer parses every built-in template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[TemplateName]emailTemplate, len(sources))}
	for name, src := range sources {
		subject, err := fasttemplate.NewTemplate(src[0], "{{", "}}")
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", name, err)
		}
		body, err := fasttemplate.NewTemplate(layout+src[1]+footer, "{{", "}}")
		if err != nil {
			return nil, fmt.Errorf("parse %s body: %w", name, err)
		}
		r.templates[name] = emailTemplate{subject: subject, body: body}
	}
	return r, nil
}

// Render fills the named template. Values are HTML-escaped; unknown tags render empty.
func (r *Renderer) Render(name TemplateName, data map[string]string) (Rendered, error) {
	tpl, ok := r.templates[name]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown email template %q", name)
	}
	values := make(map[string]string, len(data)+1)
	for k, v := range data {
		values[k] = v
	}
	values["title"] = titles[name]

	subject := tpl.subject.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		return w.Write([]byte(values[tag]))
	})
	body := tpl.body.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		return w.Write([]byte(html.EscapeString(values[tag])))
	})
	return Rendered{Subject: subject, HTML: body}, nil
}
