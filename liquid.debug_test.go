package liquid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDumpAST_FlatTemplate(t *testing.T) {
	tmpl := mustParse(t, "Hello {{ name }}!")

	expected := "'- ROOT\n" +
		"   |- TEXT='Hello'\n" +
		"   |- OUTPUT='name'\n" +
		"   '- TEXT='!'\n"
	assert.Equal(t, expected, tmpl.DumpAST())
}

func TestDumpAST_EmptyTemplate(t *testing.T) {
	tmpl := mustParse(t, "")
	assert.Equal(t, "'- ROOT\n", tmpl.DumpAST())
}

func TestDumpAST_CollapsesWhitespace(t *testing.T) {
	tmpl := mustParse(t, "{% if ok %}a\n  b{% endif %}")

	expected := "'- ROOT\n" +
		"   '- if='ok'\n" +
		"      '- TEXT='a b'\n"
	assert.Equal(t, expected, tmpl.DumpAST())
}

func TestDumpAST_NestedSiblings(t *testing.T) {
	tmpl := mustParse(t, "{% if a %}x{% endif %}y")

	expected := "'- ROOT\n" +
		"   |- if='a'\n" +
		"   |  '- TEXT='x'\n" +
		"   '- TEXT='y'\n"
	assert.Equal(t, expected, tmpl.DumpAST())
}

func TestDumpAST_BranchMarkersAppearFlat(t *testing.T) {
	tmpl := mustParse(t, "{% if a %}1{% else %}2{% endif %}")

	expected := "'- ROOT\n" +
		"   '- if='a'\n" +
		"      |- TEXT='1'\n" +
		"      |- else\n" +
		"      '- TEXT='2'\n"
	assert.Equal(t, expected, tmpl.DumpAST())
}
