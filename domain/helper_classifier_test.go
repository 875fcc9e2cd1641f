package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_PrivateMethodIsHelper(t *testing.T) {
	c := NewHelperClassifier()
	in := NewBlock(BlockMethod, "private String helper() { return \"x\"; }", "A.java")

	out := c.Classify([]Block{in})

	require.Len(t, out, 1)
	assert.True(t, out[0].IsHelper)
	assert.True(t, out[0].Same(in))
}

func TestClassify_RestrictedVisibility(t *testing.T) {
	c := NewHelperClassifier()
	cases := []string{
		"private int count = 42;",
		"protected void reset() {}",
		"@SuppressWarnings(\"unchecked\")\nprivate static <T> T cast(Object o) { return (T) o; }",
		"private static final String EVENT_CODE = \"DAYPSTDCHK1\";",
		"String format(Event e) { return e.code(); }",
		"static final int LIMIT = 10;",
		"@Nullable\nfinal Money total;",
	}
	for _, text := range cases {
		typ := BlockMethod
		if text[len(text)-1] == ';' {
			typ = BlockField
		}
		assert.True(t, c.IsHelper(NewBlock(typ, text, "A.java")), text)
	}
}

func TestClassify_PredicateWithoutOverrideIsHelper(t *testing.T) {
	c := NewHelperClassifier()
	cases := []string{
		"public Predicate<Event> activePredicate() { return e -> true; }",
		"public static Predicate<String> notBlank() { return s -> !s.isBlank(); }",
		"public boolean isActive() { return active; }",
		"public boolean hasCode() { return code != null; }",
	}
	for _, text := range cases {
		assert.True(t, c.IsHelper(NewBlock(BlockMethod, text, "A.java")), text)
	}
}

func TestClassify_OverriddenPredicateIsNeverHelper(t *testing.T) {
	c := NewHelperClassifier()
	cases := []string{
		"@Override\npublic Predicate<Ctx> predicate() {\n    return ctx -> ctx.isActive();\n}",
		"@Override public boolean isEnabled() { return true; }",
		"@java.lang.Override\npublic boolean test(Ctx c) { return true; }",
	}
	for _, text := range cases {
		assert.False(t, c.IsHelper(NewBlock(BlockMethod, text, "A.java")), text)
	}
}

func TestClassify_PublicPrimaryMethodUnchanged(t *testing.T) {
	c := NewHelperClassifier()
	in := NewBlock(BlockMethod, "@Override\npublic String eventCode() { return \"X\"; }", "A.java")

	out := c.Classify([]Block{in})

	assert.Equal(t, in, out[0])
}

func TestClassify_NeverDowngradesExistingHelper(t *testing.T) {
	c := NewHelperClassifier()
	in := NewBlock(BlockMethod, "public String name() { return n; }", "A.java").AsHelper()

	out := c.Classify([]Block{in})

	assert.Equal(t, in, out[0])
	assert.True(t, out[0].IsHelper)
}

func TestClassify_NonDeclarationsPassThrough(t *testing.T) {
	c := NewHelperClassifier()
	in := []Block{
		NewBlock(BlockStatement, "private_flag = true;", "A.java"),
		NewBlock(BlockCondition, "IF x THEN y; END IF;", "a.plsql"),
		NewBlock(BlockStatement, "return isValid();", "A.java").AsHelper(),
	}

	out := c.Classify(in)

	assert.Equal(t, in, out)
}

func TestClassify_KeepsLengthAndOrder(t *testing.T) {
	c := NewHelperClassifier()
	in := []Block{
		NewBlock(BlockMethod, "public void a() {}", "A.java"),
		NewBlock(BlockMethod, "private void b() {}", "A.java"),
		NewBlock(BlockField, "int c = 1;", "A.java"),
	}

	out := c.Classify(in)

	require.Len(t, out, 3)
	for i := range in {
		assert.True(t, in[i].Same(out[i]))
	}
	assert.Equal(t, []bool{false, true, true}, []bool{out[0].IsHelper, out[1].IsHelper, out[2].IsHelper})
}

func TestClassify_PublicDeclarationsArePrimary(t *testing.T) {
	c := NewHelperClassifier()
	cases := []string{
		"public String eventCode() { return \"X\"; }",
		"public static final String EVENT_CODE = \"X\";",
		"@Deprecated\npublic final Money total;",
		"default String describe() { return eventCode(); }",
	}
	for _, text := range cases {
		typ := BlockMethod
		if text[len(text)-1] == ';' {
			typ = BlockField
		}
		assert.False(t, c.IsHelper(NewBlock(typ, text, "A.java")), text)
	}
}

func TestDeclaredIdentifier(t *testing.T) {
	cases := map[string]string{
		"private boolean isActive(Event e) {":                  "isActive",
		"private static final String EVENT_CODE = \"X\";":      "EVENT_CODE",
		"@VisibleForTesting\nprivate String format(int x) {}": "format",
		"private int counter;":                                 "",
		"private static final Foo X = Foo.of(1);":              "X",
	}
	for text, want := range cases {
		assert.Equal(t, want, declaredIdentifier(text), text)
	}
}
