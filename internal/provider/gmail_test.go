package provider

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func b64url(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func TestExtractEmailBodyPlainText(t *testing.T) {
	payload := gmailPayload{
		MimeType: "multipart/alternative",
		Parts: []gmailPayload{
			{MimeType: "text/html", Body: gmailBody{Data: b64url("<p>ignored</p>")}},
			{MimeType: "text/plain", Body: gmailBody{Data: b64url("plain wins")}},
		},
	}
	assert.Equal(t, "plain wins", ExtractEmailBody(payload))
}

func TestExtractEmailBodyHTMLFallback(t *testing.T) {
	payload := gmailPayload{
		MimeType: "multipart/alternative",
		Parts: []gmailPayload{
			{MimeType: "text/html", Body: gmailBody{Data: b64url("<p>Hi <b>there</b></p>")}},
		},
	}
	assert.Equal(t, "Hi there", ExtractEmailBody(payload))
}

func TestExtractEmailBodyNestedMultipart(t *testing.T) {
	payload := gmailPayload{
		MimeType: "multipart/mixed",
		Parts: []gmailPayload{
			{MimeType: "multipart/alternative", Parts: []gmailPayload{
				{MimeType: "text/plain", Body: gmailBody{Data: b64url("nested body")}},
			}},
		},
	}
	assert.Equal(t, "nested body", ExtractEmailBody(payload))
}

func TestExtractEmailBodyTopLevelData(t *testing.T) {
	payload := gmailPayload{
		MimeType: "text/plain",
		Body:     gmailBody{Data: b64url("direct")},
	}
	assert.Equal(t, "direct", ExtractEmailBody(payload))
}

func TestExtractEmailBodyEmpty(t *testing.T) {
	assert.Equal(t, "", ExtractEmailBody(gmailPayload{MimeType: "multipart/mixed"}))
}

func TestCapBodyRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", capBody("short", 4000))

	// A cap landing inside a multi-byte rune backs up to the previous
	// boundary so the result stays valid UTF-8.
	s := strings.Repeat("日", 10) // 3 bytes each
	got := capBody(s, 8)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("日", 2)+"...", got)

	long := strings.Repeat("é", 2100) // 4200 bytes
	capped := capBody(long, 4000)
	assert.True(t, utf8.ValidString(capped))
	assert.Equal(t, "...", capped[len(capped)-3:])
	assert.Equal(t, strings.Repeat("é", 2000)+"...", capped)
}

func TestDecodeBase64URL(t *testing.T) {
	// "???~" encodes to characters using - and _ in the url alphabet.
	input := []byte{0xfb, 0xef, 0xbe}
	encoded := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(input)
	assert.Contains(t, encoded, "-")
	assert.Equal(t, string(input), decodeBase64URL(encoded))

	assert.Equal(t, "hello", decodeBase64URL(b64url("hello")))
	assert.Equal(t, "", decodeBase64URL("not base64!!!"))
}

func TestTimeAgo(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{40 * time.Second, "just now"},
		{59 * time.Second, "just now"},
		{125 * time.Second, "2m ago"},
		{59 * time.Minute, "59m ago"},
		{90 * time.Minute, "1h ago"},
		{23 * time.Hour, "23h ago"},
		{48 * time.Hour, "2d ago"},
		{6 * 24 * time.Hour, "6d ago"},
		{15 * 24 * time.Hour, "2w ago"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TimeAgo(tc.d), "duration %s", tc.d)
	}
}

func TestSplitSender(t *testing.T) {
	name, email := splitSender("Alice Smith <alice@example.com>")
	assert.Equal(t, "Alice Smith", name)
	assert.Equal(t, "alice@example.com", email)

	name, email = splitSender(`"Bob Jones" <bob@example.com>`)
	assert.Equal(t, "Bob Jones", name)
	assert.Equal(t, "bob@example.com", email)

	name, email = splitSender("noreply@example.com")
	assert.Equal(t, "noreply@example.com", name)
	assert.Equal(t, "noreply@example.com", email)
}

func TestHeaderValueCaseInsensitive(t *testing.T) {
	headers := []gmailHeader{{Name: "subject", Value: "Hello"}}
	assert.Equal(t, "Hello", headerValue(headers, "Subject"))
	assert.Equal(t, "", headerValue(headers, "From"))
}

func TestInternalDateToTime(t *testing.T) {
	got := internalDateToTime("1704103200000", time.Now)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), got)

	fallback := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got = internalDateToTime("garbage", func() time.Time { return fallback })
	assert.Equal(t, fallback, got)
}
