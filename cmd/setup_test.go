package cmd

import "testing"

func TestFormatEnv(t *testing.T) {
	env := map[string]string{
		"TELEGRAM_BOT_TOKEN": "123:abc",
		"LLM_API_KEY":        "key",
		"ELEVENLABS_API_KEY": "",
		"UNKNOWN":            "ignored",
	}

	want := "LLM_API_KEY=key\nTELEGRAM_BOT_TOKEN=123:abc\n"
	if got := formatEnv(env); got != want {
		t.Errorf("formatEnv() = %q, want %q", got, want)
	}
}

func TestSetupValidators(t *testing.T) {
	tests := []struct {
		name    string
		check   func(string) error
		input   string
		wantErr bool
	}{
		{name: "requiredFilled", check: required("Name"), input: "x"},
		{name: "requiredBlank", check: required("Name"), input: "   ", wantErr: true},
		{name: "positiveNumber", check: positiveNumber, input: " 45.5 "},
		{name: "zero", check: positiveNumber, input: "0", wantErr: true},
		{name: "notANumber", check: positiveNumber, input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validator(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
