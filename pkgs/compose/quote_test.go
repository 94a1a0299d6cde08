package compose

import (
	"sync"
	"testing"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var received = time.Date(2026, time.February, 10, 8, 5, 0, 0, time.UTC)

func lunchMessage() *ReferenceMessage {
	return &ReferenceMessage{
		From:         "Jane Doe <jane@example.com>",
		To:           []string{"me@example.com", "Bob <bob@example.com>"},
		Subject:      "Lunch",
		BodyHTML:     "<p>Hi</p>",
		DateReceived: received,
	}
}

const goldenBlockquote = `<blockquote class="quote" style="margin:0 0 0 .8ex;border-left:1px #ccc solid;padding-left:1ex">`

func TestCompose_ReplyGolden(t *testing.T) {
	want := `<div class="quote">On Feb 10, 2026 8:05 AM, Jane Doe &lt;jane@example.com&gt; wrote:` +
		`<br type='attribution'>` + goldenBlockquote + `<p>Hi</p></blockquote></div>`

	for _, action := range []Action{ActionReply, ActionReplyAll} {
		got := NewComposer().Compose(action, lunchMessage(), time.Time{})
		assert.Equal(t, "Re: Lunch", got.Subject, action)
		assert.Equal(t, want, got.QuotedBodyHTML, action)
	}
}

func TestCompose_ForwardGolden(t *testing.T) {
	ref := lunchMessage()
	ref.Cc = []string{"carol@example.com"}

	want := `<div class="quote">---------- Forwarded message ----------<br>` +
		`From: Jane Doe &lt;jane@example.com&gt;<br>` +
		`Date: Feb 10, 2026 8:05 AM<br>` +
		`Subject: Lunch<br>` +
		`To: me@example.com, Bob &lt;bob@example.com&gt;<br>` +
		`Cc: carol@example.com<br>` +
		`<br type='attribution'><p>Hi</p></div>`

	got := NewComposer().Compose(ActionForward, ref, time.Time{})
	assert.Equal(t, "Fwd: Lunch", got.Subject)
	assert.Equal(t, want, got.QuotedBodyHTML)
}

func TestCompose_ForwardKeepsEmptyCcLine(t *testing.T) {
	got := NewComposer().Compose(ActionForward, lunchMessage(), time.Time{})
	assert.Contains(t, got.QuotedBodyHTML, "<br>Cc: <br><br type='attribution'>")
}

func TestCompose_GermanGolden(t *testing.T) {
	c := NewComposer(WithLocale(language.MustParse("de-CH")))
	assert.Equal(t, language.German, c.Locale())

	reply := c.Compose(ActionReply, lunchMessage(), time.Time{})
	assert.Equal(t, "AW: Lunch", reply.Subject)
	assert.Equal(t, `<div class="quote">Am 10.02.2026 08:05 schrieb Jane Doe &lt;jane@example.com&gt;:`+
		`<br type='attribution'>`+goldenBlockquote+`<p>Hi</p></blockquote></div>`, reply.QuotedBodyHTML)

	fwd := c.Compose(ActionForward, lunchMessage(), time.Time{})
	assert.Equal(t, "WG: Lunch", fwd.Subject)
	assert.Equal(t, `<div class="quote">---------- Weitergeleitete Nachricht ----------<br>`+
		`Von: Jane Doe &lt;jane@example.com&gt;<br>`+
		`Datum: 10.02.2026 08:05<br>`+
		`Betreff: Lunch<br>`+
		`An: me@example.com, Bob &lt;bob@example.com&gt;<br>`+
		`Cc: <br>`+
		`<br type='attribution'><p>Hi</p></div>`, fwd.QuotedBodyHTML)
}

func TestCompose_UnsupportedLocaleFallsBackToEnglish(t *testing.T) {
	c := NewComposer(WithLocale(language.Japanese))
	assert.Equal(t, language.English, c.Locale())
	assert.Equal(t, "Re: Lunch", c.Subject(ActionReply, "Lunch"))
}

func TestCompose_ComposeHasNoBody(t *testing.T) {
	got := NewComposer().Compose(ActionCompose, lunchMessage(), time.Time{})
	assert.Equal(t, "Lunch", got.Subject)
	assert.Empty(t, got.QuotedBodyHTML)
}

func TestCompose_NilReference(t *testing.T) {
	assert.Equal(t, ComposedContent{}, NewComposer().Compose(ActionReply, nil, received))
}

func TestCompose_MissingDateUsesNow(t *testing.T) {
	ref := lunchMessage()
	ref.DateReceived = time.Time{}
	now := time.Date(2026, time.March, 1, 17, 30, 0, 0, time.UTC)

	got := NewComposer().Compose(ActionReply, ref, now)
	assert.Contains(t, got.QuotedBodyHTML, "On Mar 1, 2026 5:30 PM, Jane Doe")
}

func TestCompose_Location(t *testing.T) {
	c := NewComposer(WithLocation(time.FixedZone("CET", 3600)))
	got := c.Compose(ActionReply, lunchMessage(), time.Time{})
	assert.Contains(t, got.QuotedBodyHTML, "On Feb 10, 2026 9:05 AM,")
}

func TestCompose_Sanitizer(t *testing.T) {
	ref := lunchMessage()
	ref.BodyHTML = `<p onclick="steal()">Hi</p><script>alert(1)</script>`

	got := NewComposer(WithSanitizer(bluemonday.UGCPolicy())).Compose(ActionReply, ref, time.Time{})
	assert.Contains(t, got.QuotedBodyHTML, "<p>Hi</p>")
	assert.NotContains(t, got.QuotedBodyHTML, "onclick")
	assert.NotContains(t, got.QuotedBodyHTML, "<script>")

	raw := NewComposer().Compose(ActionReply, ref, time.Time{})
	assert.Contains(t, raw.QuotedBodyHTML, "<script>alert(1)</script>")
}

func TestCompose_HeaderValuesAreCleaned(t *testing.T) {
	ref := &ReferenceMessage{
		From:         `"Jane" <jane@example.com>""`,
		To:           []string{`"" <a@example.com>`, "<>"},
		Subject:      `"Q&A"`,
		DateReceived: received,
	}

	got := NewComposer().Compose(ActionForward, ref, time.Time{})
	assert.Contains(t, got.QuotedBodyHTML, "From: &#34;Jane&#34; &lt;jane@example.com&gt;<br>")
	assert.Contains(t, got.QuotedBodyHTML, "Subject: Q&amp;A<br>")
	assert.Contains(t, got.QuotedBodyHTML, "To: &lt;a@example.com&gt;,<br>")
}

func TestSubject(t *testing.T) {
	c := NewComposer()
	tests := []struct {
		action  Action
		subject string
		want    string
	}{
		{ActionReply, "Hello", "Re: Hello"},
		{ActionReply, "Re: Hello", "Re: Hello"},
		{ActionReplyAll, "RE: Hello", "RE: Hello"},
		{ActionReply, "Reply needed", "Re: Reply needed"},
		{ActionReply, "", "Re: "},
		{ActionForward, "Hello", "Fwd: Hello"},
		{ActionForward, "fwd: Hello", "fwd: Hello"},
		{ActionForward, "Re: Hello", "Fwd: Re: Hello"},
		{ActionCompose, "Hello", "Hello"},
	}

	for _, tt := range tests {
		t.Run(tt.action.String()+"/"+tt.subject, func(t *testing.T) {
			got := c.Subject(tt.action, tt.subject)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, c.Subject(tt.action, got), "prefixing must be idempotent")
		})
	}
}

func TestCleanUp(t *testing.T) {
	tests := []struct {
		in           string
		removeQuotes bool
		want         string
	}{
		{`"a@x.com"`, true, "a@x.com"},
		{`a@x.com""`, true, "a@x.com"},
		{"  Jane <>  ", true, "Jane"},
		{`say ""hi""`, false, "say &#34;&#34;hi&#34;&#34;"},
		{`<b>&`, false, "&lt;b&gt;&amp;"},
		{"", true, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanUp(tt.in, tt.removeQuotes), tt.in)
	}
}

func TestComposerAndResolverConcurrentUse(t *testing.T) {
	c := NewComposer()
	r := NewResolver()
	ref := lunchMessage()
	ref.Cc = []string{"carol@example.com"}
	id := Identity{Email: "me@example.com"}

	wantContent := c.Compose(ActionReplyAll, ref, time.Time{})
	wantSets, err := r.Resolve(ActionReplyAll, id, ref)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, wantContent, c.Compose(ActionReplyAll, ref, time.Time{}))
				sets, err := r.Resolve(ActionReplyAll, id, ref)
				assert.NoError(t, err)
				assert.Equal(t, wantSets, sets)
			}
		}()
	}
	wg.Wait()
}
