package traffic

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/httpseal/trafficsift/internal/config"
)

const burpExportXML = `<?xml version="1.0"?>
<!DOCTYPE items [
<!ELEMENT items (item*)>
]>
<items burpVersion="2023.10">
  <item>
    <time>Mon Oct 02 10:00:00 UTC 2023</time>
    <url><![CDATA[https://example.com/api/login]]></url>
    <method><![CDATA[POST]]></method>
    <status>200</status>
    <request base64="true"><![CDATA[UE9TVCAvYXBpL2xvZ2luIEhUVFAvMS4x]]></request>
    <response base64="false"><![CDATA[HTTP/1.1 200 OK]]></response>
  </item>
  <item>
    <url><![CDATA[https://example.com/empty]]></url>
    <request base64="true"></request>
  </item>
  <item>
    <response base64="True">plain</response>
  </item>
</items>
`

func TestParseBurp(t *testing.T) {
	seq, err := ParseBurp(strings.NewReader(burpExportXML))
	require.NoError(t, err)

	records := slices.Collect(seq)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "https://example.com/api/login", first.URL)
	assert.Equal(t, "POST", first.Method)
	assert.Equal(t, "200", first.Status)
	assert.Equal(t, Field{Text: "UE9TVCAvYXBpL2xvZ2luIEhUVFAvMS4x", Base64: true, Present: true}, first.Request)
	assert.Equal(t, Field{Text: "HTTP/1.1 200 OK", Present: true}, first.Response)
	assert.Len(t, first.Fields(), 2)

	second := records[1]
	assert.False(t, second.Request.Present, "empty element is treated as no content")
	assert.False(t, second.Response.Present, "missing element is treated as no content")
	assert.Empty(t, second.Fields())

	third := records[2]
	assert.True(t, third.Response.Present)
	assert.False(t, third.Response.Base64, "base64 attribute is case sensitive")
	require.Len(t, third.Fields(), 1)
	assert.Equal(t, FieldResponse, third.Fields()[0].Name)
}

func TestParseBurpOnlyDirectChildren(t *testing.T) {
	doc := `<root><group><item><request>nested</request></item></group><item><request>top</request></item></root>`

	seq, err := ParseBurp(strings.NewReader(doc))
	require.NoError(t, err)

	records := slices.Collect(seq)
	require.Len(t, records, 1)
	assert.Equal(t, "top", records[0].Request.Text)
}

func TestParseBurpMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "truncated", doc: `<items><item><request>abc</request>`},
		{name: "not xml", doc: `hello world`},
		{name: "trailing element", doc: `<items></items><items></items>`},
		{name: "unknown charset", doc: `<?xml version="1.0" encoding="x-made-up"?><items/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := ParseBurp(strings.NewReader(tt.doc))
			assert.Error(t, err)
			assert.Nil(t, seq)
		})
	}
}

func TestParseBurpRepeatedElements(t *testing.T) {
	doc := `<items><item>
  <request>first</request>
  <request base64="true">c2Vjb25k</request>
  <response base64="true">Zmlyc3Q=</response>
  <response>second</response>
</item></items>`

	seq, err := ParseBurp(strings.NewReader(doc))
	require.NoError(t, err)

	records := slices.Collect(seq)
	require.Len(t, records, 1)
	assert.Equal(t, Field{Text: "first", Present: true}, records[0].Request)
	assert.Equal(t, Field{Text: "Zmlyc3Q=", Base64: true, Present: true}, records[0].Response)
}

func TestParseBurpLatin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<items><item><comment>caf\xe9</comment><request>GET / HTTP/1.1</request></item></items>"

	seq, err := ParseBurp(strings.NewReader(doc))
	require.NoError(t, err)

	records := slices.Collect(seq)
	require.Len(t, records, 1)
	assert.Equal(t, "GET / HTTP/1.1", records[0].Request.Text)
}

const harDocument = `{
  "log": {
    "version": "1.2",
    "creator": {"name": "browser", "version": "1"},
    "entries": [
      {
        "request": {
          "method": "POST",
          "url": "https://example.com/api",
          "httpVersion": "HTTP/1.1",
          "headers": [{"name": "Content-Type", "value": "application/json"}],
          "postData": {"mimeType": "application/json", "text": "{\"a\":\"b\"}"}
        },
        "response": {
          "status": 200,
          "statusText": "OK",
          "httpVersion": "h2",
          "headers": [{"name": "Server", "value": "test"}],
          "content": {"size": 2, "mimeType": "text/plain", "text": "ok"}
        }
      },
      {
        "request": {"method": "GET", "url": "https://example.com/img", "httpVersion": "", "headers": []},
        "response": {
          "status": 404,
          "content": {"size": 3, "mimeType": "image/png", "text": "AAEC", "encoding": "base64"}
        }
      },
      {
        "request": {"method": "GET", "url": "https://example.com/none", "headers": []}
      }
    ]
  }
}`

func TestParseHAR(t *testing.T) {
	seq, err := ParseHAR([]byte(harDocument))
	require.NoError(t, err)

	records := slices.Collect(seq)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "https://example.com/api", first.URL)
	assert.Equal(t, "POST", first.Method)
	assert.Equal(t, "200", first.Status)
	assert.Equal(t,
		"POST https://example.com/api HTTP/1.1\r\nContent-Type: application/json\r\n\r\n{\"a\":\"b\"}",
		first.Request.Text)
	assert.False(t, first.Request.Base64)
	assert.Equal(t, "HTTP/2.0 200 OK\r\nServer: test\r\n\r\nok", first.Response.Text)

	second := records[1]
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, Field{Text: "AAEC", Base64: true, Present: true}, second.Response)
	assert.Equal(t, "GET https://example.com/img HTTP/1.1\r\n\r\n", second.Request.Text)

	third := records[2]
	assert.True(t, third.Request.Present)
	assert.False(t, third.Response.Present)
}

func TestParseHARMalformed(t *testing.T) {
	_, err := ParseHAR([]byte(`{"log": `))
	assert.ErrorIs(t, err, errInvalidJSON)

	_, err = ParseHAR([]byte(`{"log": {"entries": {}}}`))
	assert.ErrorIs(t, err, errNoEntries)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		data   string
		format config.InputFormat
		want   config.InputFormat
	}{
		{name: "explicit wins", path: "a.har", data: "{}", format: config.InputBurp, want: config.InputBurp},
		{name: "har extension", path: "capture.HAR", data: "<items/>", format: config.InputAuto, want: config.InputHAR},
		{name: "json content", path: "export", data: "\xef\xbb\xbf\n  {\"log\":{}}", format: config.InputAuto, want: config.InputHAR},
		{name: "xml content", path: "export.xml", data: "<?xml version=\"1.0\"?><items/>", format: config.InputAuto, want: config.InputBurp},
		{name: "empty", path: "export", data: "", format: "", want: config.InputBurp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.path, []byte(tt.data), tt.format))
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("burp file", func(t *testing.T) {
		path := filepath.Join(dir, "export.xml")
		require.NoError(t, os.WriteFile(path, []byte(burpExportXML), 0o644))

		seq, err := ReadFile(path, config.InputAuto)
		require.NoError(t, err)
		assert.Len(t, slices.Collect(seq), 3)
	})

	t.Run("har file", func(t *testing.T) {
		path := filepath.Join(dir, "capture.har")
		require.NoError(t, os.WriteFile(path, []byte(harDocument), 0o644))

		seq, err := ReadFile(path, config.InputAuto)
		require.NoError(t, err)
		assert.Len(t, slices.Collect(seq), 3)
	})

	t.Run("missing file is fail-soft", func(t *testing.T) {
		seq, err := ReadFile(filepath.Join(dir, "missing.xml"), config.InputAuto)
		assert.Error(t, err)
		require.NotNil(t, seq)
		assert.Empty(t, slices.Collect(seq))
	})

	t.Run("malformed file is fail-soft", func(t *testing.T) {
		path := filepath.Join(dir, "broken.xml")
		require.NoError(t, os.WriteFile(path, []byte("<items><item>"), 0o644))

		seq, err := ReadFile(path, config.InputAuto)
		assert.Error(t, err)
		assert.Empty(t, slices.Collect(seq))
	})

	t.Run("unknown format", func(t *testing.T) {
		path := filepath.Join(dir, "export.xml")
		seq, err := ReadFile(path, "pcap")
		assert.ErrorIs(t, err, ErrUnknownFormat)
		assert.Empty(t, slices.Collect(seq))
	})
}
