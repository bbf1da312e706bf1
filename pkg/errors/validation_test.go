package errors

import "testing"

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"requests", false},
		{"PyYAML", false},
		{"opencv-python", false},
		{"zope.interface", false},
		{"a", false},
		{"", true},
		{"-leading", true},
		{"trailing-", true},
		{"../etc", true},
		{"with space", true},
		{"bad\x00name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidConfig) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidConfig)
			}
		})
	}
}

func TestValidateImportName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"yaml", false},
		{"PIL", false},
		{"_private", false},
		{"sentence_transformers", false},
		{"", true},
		{"a.b", true},
		{"1abc", true},
		{"has-dash", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateImportName(tt.name); (err != nil) != tt.wantErr {
				t.Errorf("ValidateImportName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRoot(t *testing.T) {
	if err := ValidateRoot("."); err != nil {
		t.Errorf("ValidateRoot(.) = %v", err)
	}
	if err := ValidateRoot(""); !Is(err, ErrCodeInvalidPath) {
		t.Errorf("ValidateRoot(\"\") = %v, want INVALID_PATH", err)
	}
	if err := ValidateRoot("a\x00b"); !Is(err, ErrCodeInvalidPath) {
		t.Errorf("ValidateRoot(null) = %v, want INVALID_PATH", err)
	}
}
