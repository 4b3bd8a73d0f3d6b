package mail_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/datifyy/datifyy-service/internal/mail"
)

func TestRenderWelcomeFillsPlaceholders(t *testing.T) {
	r, err := mail.NewRenderer()
	require.NoError(t, err)

	out, err := r.Render(mail.TemplateWelcome, map[string]string{
		"first_name": "Asha",
		"app_url":    "https://datifyy.com",
	})
	require.NoError(t, err)
	require.Equal(t, "Welcome to Datifyy, Asha!", out.Subject)
	require.Contains(t, out.HTML, "Hey Asha,")
	require.Contains(t, out.HTML, `href="https://datifyy.com/get-started"`)
	require.NotContains(t, out.HTML, "{{")
}

func TestRenderEscapesValues(t *testing.T) {
	r, err := mail.NewRenderer()
	require.NoError(t, err)

	out, err := r.Render(mail.TemplateInvite, map[string]string{"name": "<script>x</script>"})
	require.NoError(t, err)
	require.Contains(t, out.HTML, "&lt;script&gt;x&lt;/script&gt;")
	require.NotContains(t, out.HTML, "<script>")
}

func TestRenderMissingValuesAreEmpty(t *testing.T) {
	r, err := mail.NewRenderer()
	require.NoError(t, err)

	out, err := r.Render(mail.TemplateForgotPassword, nil)
	require.NoError(t, err)
	require.Contains(t, out.HTML, "reset-password?token=\"")
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := mail.NewRenderer()
	require.NoError(t, err)

	_, err = r.Render("nope", nil)
	require.Error(t, err)
}
