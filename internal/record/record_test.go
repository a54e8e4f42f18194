package record

import "testing"

func TestParsePlatform(t *testing.T) {
	for _, s := range []string{"chatgpt", "claude", "copilot", "deepseek"} {
		if _, ok := ParsePlatform(s); !ok {
			t.Errorf("%s not recognized", s)
		}
	}
	if _, ok := ParsePlatform("gemini"); ok {
		t.Error("gemini should not be recognized")
	}
	if _, ok := ParsePlatform(""); ok {
		t.Error("empty platform should not be recognized")
	}
}

func TestMapRole(t *testing.T) {
	cases := map[string]Role{
		"user":      RoleUser,
		"human":     RoleUser,
		"assistant": RoleAssistant,
		"ai":        RoleAssistant,
		"bot":       RoleAssistant,
		"system":    RoleSystem,
		"tool":      RoleTool,
		"function":  RoleTool,
		"narrator":  RoleOther,
		"":          RoleOther,
	}
	for token, want := range cases {
		if got := MapRole(token); got != want {
			t.Errorf("MapRole(%q) = %q, want %q", token, got, want)
		}
	}
}
