package convert

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PatrickNulla/AZ-Config-Converter/internal/variables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLocal = `{"IsEncrypted": false, "Values": {"ApiKey": "abc", "Debug": "true"}}`

func keys(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

func valuesOf(t *testing.T, pairs ...string) *Values {
	t.Helper()
	require.Equal(t, 0, len(pairs)%2)
	v := NewValues()
	for i := 0; i < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

func TestOrdering_Apply(t *testing.T) {
	values := valuesOf(t, "b", "1", "a", "2", "c", "3")

	tests := []struct {
		name     string
		ordering Ordering
		want     []string
	}{
		{name: "insertion", ordering: Ordering{}, want: []string{"b", "a", "c"}},
		{name: "descending flag without sort", ordering: Ordering{Descending: true}, want: []string{"b", "a", "c"}},
		{name: "ascending", ordering: Ordering{Sort: true}, want: []string{"a", "b", "c"}},
		{name: "descending", ordering: Ordering{Sort: true, Descending: true}, want: []string{"c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keys(tt.ordering.Apply(values)))
		})
	}

	assert.Nil(t, Ordering{Sort: true}.Apply(nil))
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		from, to string
		want     Direction
	}{
		{"local", "pipeline", LocalToPipeline},
		{"Local-Settings", "DevOps", LocalToPipeline},
		{"pipeline", "azure", PipelineToAzure},
		{"pipeline", "functionapp", PipelineToAzure},
		{"azure", "local", AzureToLocal},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.from, tt.to)
		require.NoError(t, err, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseDirection("local", "azure")
	assert.ErrorIs(t, err, ErrUnsupportedDirection)

	_, err = ParseDirection("yaml", "pipeline")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(Direction(42), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedDirection)
}

func TestDirection_FileName(t *testing.T) {
	assert.Equal(t, "dev_app.txt", LocalToPipeline.FileName("dev", "app"))
	assert.Equal(t, "dev-app.json", PipelineToAzure.FileName("dev", "app"))
	assert.Equal(t, "app.json", AzureToLocal.FileName("", "app"))
	assert.Equal(t, "local-to-pipeline", LocalToPipeline.String())
	assert.False(t, AzureToLocal.UsesEnvironment())
}

func convertString(t *testing.T, d Direction, opts Options, input, env string) Result {
	t.Helper()
	c, err := New(d, opts)
	require.NoError(t, err)
	require.Equal(t, d, c.Direction())

	values, err := c.Parse([]byte(input))
	require.NoError(t, err)

	res, err := c.Convert(values, env)
	require.NoError(t, err)
	return res
}

func TestLocalToPipeline(t *testing.T) {
	res := convertString(t, LocalToPipeline, Options{}, sampleLocal, "dev")

	assert.Equal(t, `-ApiKey "abc" -Debug "true"`, string(res.Data))
	assert.Equal(t, []string{"ApiKey", "Debug"}, res.Variables)
}

func TestPipelineToAzure(t *testing.T) {
	res := convertString(t, PipelineToAzure, Options{}, sampleLocal, "dev")

	assert.JSONEq(t,
		`[{"name":"ApiKey","value":"abc","slotSetting":false},{"name":"Debug","value":"true","slotSetting":false}]`,
		string(res.Data))
	assert.True(t, strings.HasPrefix(string(res.Data), "[\n  {\n    \"name\""), "output should be indented")
	assert.False(t, strings.HasSuffix(string(res.Data), "\n"))
	assert.Equal(t, []string{"ApiKey", "Debug"}, res.Variables)
}

func TestOverrideLiteral(t *testing.T) {
	opts := Options{Table: variables.NewTable(map[string]map[string]string{
		"dev": {"ApiKey": "prod-key-ref"},
	})}

	res := convertString(t, LocalToPipeline, opts, sampleLocal, "dev")
	assert.Equal(t, `-ApiKey "prod-key-ref" -Debug "true"`, string(res.Data))

	res = convertString(t, LocalToPipeline, opts, sampleLocal, "test")
	assert.Equal(t, `-ApiKey "abc" -Debug "true"`, string(res.Data))
}

func TestOverrideReference(t *testing.T) {
	opts := Options{Table: variables.NewTable(map[string]map[string]string{
		"test": {"ApiKey": "#$prod$#"},
		"prod": {"ApiKey": "prod-secret"},
	})}

	res := convertString(t, PipelineToAzure, opts, sampleLocal, "test")
	assert.Contains(t, string(res.Data), `"value": "prod-secret"`)
}

func TestUnresolvedReferenceFailsConversion(t *testing.T) {
	opts := Options{Table: variables.NewTable(map[string]map[string]string{
		"test": {"ApiKey": "#$prod$#"},
	})}

	c, err := New(LocalToPipeline, opts)
	require.NoError(t, err)
	values, err := c.Parse([]byte(sampleLocal))
	require.NoError(t, err)

	_, err = c.Convert(values, "test")
	assert.ErrorIs(t, err, variables.ErrUnresolvedReference)
}

func TestIgnoreList(t *testing.T) {
	input := `{"Values": {"b": "1", "Secret": "x", "a": "2"}}`

	for _, ordering := range []Ordering{{}, {Sort: true}, {Sort: true, Descending: true}} {
		opts := Options{Ordering: ordering, Ignore: []string{"Secret"}}
		for _, d := range []Direction{LocalToPipeline, PipelineToAzure} {
			res := convertString(t, d, opts, input, "dev")
			assert.NotContains(t, string(res.Data), "Secret")
			assert.NotContains(t, res.Variables, "Secret")
			assert.Len(t, res.Variables, 2)
		}
	}
}

func TestSortedOutput(t *testing.T) {
	input := `{"Values": {"b": "1", "a": "2"}}`

	res := convertString(t, LocalToPipeline, Options{Ordering: Ordering{Sort: true}}, input, "dev")
	assert.Equal(t, `-a "2" -b "1"`, string(res.Data))

	res = convertString(t, LocalToPipeline, Options{Ordering: Ordering{Sort: true, Descending: true}}, input, "dev")
	assert.Equal(t, `-b "1" -a "2"`, string(res.Data))

	res = convertString(t, LocalToPipeline, Options{}, input, "dev")
	assert.Equal(t, `-b "1" -a "2"`, string(res.Data))
}

func TestNonStringValues(t *testing.T) {
	input := `{"Values": {"Port": 8080, "Enabled": true, "Empty": null, "Nested": {"a": 1}}}`

	res := convertString(t, LocalToPipeline, Options{}, input, "dev")
	assert.Equal(t, `-Port "8080" -Enabled "true" -Empty "" -Nested "{"a":1}"`, string(res.Data))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		d     Direction
		input string
	}{
		{name: "malformed json", d: LocalToPipeline, input: `{"Values": `},
		{name: "missing values", d: LocalToPipeline, input: `{"Other": {}}`},
		{name: "values not object", d: PipelineToAzure, input: `{"Values": "x"}`},
		{name: "array for settings", d: PipelineToAzure, input: `[]`},
		{name: "object for function app", d: AzureToLocal, input: `{"Values": {}}`},
		{name: "nameless entry", d: AzureToLocal, input: `[{"value": "x"}]`},
		{name: "null function app", d: AzureToLocal, input: `null`},
		{name: "blank function app", d: AzureToLocal, input: "  \n"},
		{name: "null settings", d: LocalToPipeline, input: `null`},
		{name: "null values", d: LocalToPipeline, input: `{"Values": null}`},
		{name: "lowercase values key", d: PipelineToAzure, input: `{"values": {"A": "1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.d, Options{})
			require.NoError(t, err)
			_, err = c.Parse([]byte(tt.input))
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestAzureToLocal(t *testing.T) {
	input := `[
  {"name": "Zeta", "value": "1", "slotSetting": false},
  {"name": "Alpha", "value": "2", "slotSetting": true}
]`
	res := convertString(t, AzureToLocal, Options{}, input, "")

	assert.Equal(t, []string{"Zeta", "Alpha"}, res.Variables)
	assert.JSONEq(t, `{"IsEncrypted": false, "Values": {"Zeta": "1", "Alpha": "2"}}`, string(res.Data))
	assert.Less(t, strings.Index(string(res.Data), "Zeta"), strings.Index(string(res.Data), "Alpha"))
}

func TestAzureToLocalIgnoresTable(t *testing.T) {
	opts := Options{Table: variables.NewTable(map[string]map[string]string{
		"": {"Zeta": "override"},
	})}
	res := convertString(t, AzureToLocal, opts, `[{"name": "Zeta", "value": "1"}]`, "")
	assert.Contains(t, string(res.Data), `"Zeta": "1"`)
}

func TestRoundTrip(t *testing.T) {
	input := `{"Values": {"ApiKey": "abc", "Debug": "true", "Url": "https://x?a=1&b=<2>"}}`

	forward := convertString(t, PipelineToAzure, Options{}, input, "dev")
	back := convertString(t, AzureToLocal, Options{}, string(forward.Data), "")

	var got struct {
		IsEncrypted bool              `json:"IsEncrypted"`
		Values      map[string]string `json:"Values"`
	}
	require.NoError(t, json.Unmarshal(back.Data, &got))
	assert.False(t, got.IsEncrypted)
	assert.Equal(t, map[string]string{
		"ApiKey": "abc",
		"Debug":  "true",
		"Url":    "https://x?a=1&b=<2>",
	}, got.Values)
	assert.ElementsMatch(t, forward.Variables, back.Variables)
}
