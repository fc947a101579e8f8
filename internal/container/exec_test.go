package container

import "testing"

func TestValidateEnvPair(t *testing.T) {
	cases := []struct {
		name    string
		kv      EnvPair
		wantErr bool
	}{
		{"ok", EnvPair{Key: "FOO", Value: "bar"}, false},
		{"empty key", EnvPair{Key: "", Value: "bar"}, true},
		{"equals in key", EnvPair{Key: "FOO=BAR", Value: "baz"}, true},
		{"nul in key", EnvPair{Key: "FOO\x00", Value: "bar"}, true},
		{"nul in value", EnvPair{Key: "FOO", Value: "ba\x00r"}, true},
		{"empty value ok", EnvPair{Key: "FOO", Value: ""}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := validateEnvPair(c.kv)
			if (err != nil) != c.wantErr {
				t.Errorf("validateEnvPair(%+v) error = %v, wantErr %v", c.kv, err, c.wantErr)
			}
		})
	}
}
