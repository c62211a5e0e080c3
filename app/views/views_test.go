package views

import (
	"testing"

	"github.com/amirphl/counter-app/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPages(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	t.Run("Home", func(t *testing.T) {
		html, err := r.Render(PageHome, Page{Title: "Counter App"})
		require.NoError(t, err)
		assert.Contains(t, string(html), "Welcome to Counter App")
		assert.Contains(t, string(html), `href="/counter"`)
	})

	t.Run("Counter", func(t *testing.T) {
		html, err := r.Render(PageCounter, Page{
			Title: "Counter App",
			Data:  &dto.CounterPageData{ViewID: "abc", CounterName: "main_counter", Value: -3},
		})
		require.NoError(t, err)
		body := string(html)
		assert.Contains(t, body, `<output id="counter-value" class="value" data-view-id="abc">-3</output>`)
		assert.Contains(t, body, `action="/counter/abc/increment"`)
		assert.Contains(t, body, `action="/counter/abc/decrement"`)
		assert.Contains(t, body, "Back to Home")
	})

	t.Run("ErrorEscapesMessage", func(t *testing.T) {
		html, err := r.Render(PageError, Page{
			Title: "Error",
			Data:  ErrorPage{Heading: "Something went wrong", Message: "<script>x</script>"},
		})
		require.NoError(t, err)
		assert.NotContains(t, string(html), "<script>x</script>")
		assert.NotContains(t, string(html), "Request ID")
	})

	t.Run("UnknownPage", func(t *testing.T) {
		_, err := r.Render("missing", Page{})
		assert.Error(t, err)
	})
}
