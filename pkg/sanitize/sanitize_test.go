package sanitize

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", EscapeHTML("<script>alert(1)</script>"))
	assert.Equal(t, "", EscapeHTML(""))
	assert.Equal(t, "&amp;lt;", EscapeHTML("&lt;"))
	assert.Equal(t, "&quot;a&quot; &#x27;b&#x27; &#x60;c&#x60;", EscapeHTML("\"a\" 'b' `c`"))
	assert.Equal(t, "plain text", EscapeHTML("plain text"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.co"))
	assert.True(t, IsValidEmail("first.last+tag@sub.example.jp"))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("a@b"))
	assert.False(t, IsValidEmail("a b@c.de"))
	assert.False(t, IsValidEmail("a@@b.co"))
	assert.False(t, IsValidEmail(""))

	long := strings.Repeat("a", 245) + "@b.com" + "xxxx" // 255 chars
	assert.Len(t, long, 255)
	assert.False(t, IsValidEmail(long))

	edge := strings.Repeat("a", 248) + "@b.com" // 254 chars
	assert.True(t, IsValidEmail(edge))
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("https://makers.tokyo/path?q=1"))
	assert.True(t, IsValidURL("HTTP://example.com"))
	assert.False(t, IsValidURL("javascript:alert(1)"))
	assert.False(t, IsValidURL("ftp://example.com"))
	assert.False(t, IsValidURL("/relative"))
	assert.False(t, IsValidURL("http://"))
	assert.False(t, IsValidURL("http://%zz"))
	assert.False(t, IsValidURL(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hel", Truncate("hello", 3))
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "", Truncate("hello", 0))
	assert.Equal(t, "", Truncate("hello", -2))
	assert.Equal(t, "", Truncate("", 5))
	assert.Equal(t, "日本", Truncate("日本語", 2))
}

func TestContainsSuspiciousPattern(t *testing.T) {
	suspicious := []string{
		"<script>alert(1)</script>",
		"< SCRIPT src=//x>",
		`<img src=x onerror=alert(1)>`,
		`<body onload = "x()">`,
		"javascript:alert(document.cookie)",
		"JaVaScRiPt :void(0)",
		"data:text/html;base64,PHNjcmlwdD4=",
		"' OR '1'='1",
		`" or 1=1 --`,
		"admin' and 1=1",
		"x'; DROP TABLE users; --",
		"1; delete from sessions",
		"1 UNION SELECT password FROM users",
		"1 union all select 1,2",
		"ｊａｖａｓｃｒｉｐｔ：alert(1)",
		"java\u200bscript:alert(1)",
	}
	for _, s := range suspicious {
		assert.True(t, ContainsSuspiciousPattern(s), "expected suspicious: %q", s)
	}

	benign := []string{
		"",
		"Hello, I'd like to join the workshop on Saturday.",
		"My email is a@b.co and my site is https://example.com",
		"We sell onions and carrots.",
		"Select a union rep by Friday",
		"2 + 2 = 4",
	}
	for _, s := range benign {
		assert.False(t, ContainsSuspiciousPattern(s), "expected benign: %q", s)
	}
}

func TestSafeJSON(t *testing.T) {
	got := SafeJSON(map[string]string{"name": "</script><script>alert(1)</script>&"})
	assert.NotContains(t, got, "<")
	assert.NotContains(t, got, ">")
	assert.NotContains(t, got, "&")
	assert.Contains(t, got, `\u003c/script\u003e`)
	assert.Contains(t, got, `\u0026`)

	assert.Equal(t, "null", SafeJSON(math.Inf(1)))
	assert.Equal(t, "null", SafeJSON(make(chan int)))
	assert.Equal(t, `{"a":1}`, SafeJSON(map[string]int{"a": 1}))
}

func TestSanitizeFilename(t *testing.T) {
	got := SanitizeFilename("../../etc/passwd")
	assert.NotContains(t, got, "..")
	assert.NotContains(t, got, "/")
	assert.Equal(t, "etcpasswd", got)

	assert.Equal(t, "report.pdf", SanitizeFilename("report.pdf"))
	assert.Equal(t, "abc", SanitizeFilename(`a:b*c?"<>|`))
	assert.Equal(t, "winsystem32", SanitizeFilename(`..\..\win\system32`))
	assert.NotContains(t, SanitizeFilename("./."), "..")
	assert.NotContains(t, SanitizeFilename("...."), "..")
	assert.Equal(t, "nullbyte.txt", SanitizeFilename("null\x00byte.txt"))
	assert.Len(t, []rune(SanitizeFilename(strings.Repeat("あ", 300))), MaxFilenameLength)
}

func TestText(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;", Text("  <b>hi  ", 3))
	assert.Equal(t, "hi", Text("  hi  ", 100))
}
