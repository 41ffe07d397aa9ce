package model

import "testing"

func TestEndCharacter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		char int
		want int
	}{
		{"m", 4, 5},
		{"oldApi", 0, 6},
		{"naïve", 2, 7},
		{"𝒳x", 0, 3}, // astral rune counts as a surrogate pair
	}
	for _, tt := range tests {
		it := DeprecatedItem{Name: tt.name, Character: tt.char}
		if got := it.EndCharacter(); got != tt.want {
			t.Errorf("EndCharacter(%q @%d) = %d, want %d", tt.name, tt.char, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	decl := &DeclarationRef{Name: "m", FileName: "a.ts", FilePath: "/p/a.ts", Line: 2}

	tests := []struct {
		name    string
		item    DeprecatedItem
		wantErr bool
	}{
		{"declaration", DeprecatedItem{Name: "m", Kind: Method, Line: 1}, false},
		{"usage", DeprecatedItem{Name: "m", Kind: Usage, Line: 3, DeprecatedDeclaration: decl}, false},
		{"usage without link", DeprecatedItem{Name: "m", Kind: Usage, Line: 3}, true},
		{"declaration with link", DeprecatedItem{Name: "m", Kind: Class, Line: 3, DeprecatedDeclaration: decl}, true},
		{"zero line", DeprecatedItem{Name: "m", Kind: Function}, true},
		{"bad kind", DeprecatedItem{Name: "m", Kind: "enum", Line: 1}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSeverity(t *testing.T) {
	t.Parallel()

	if _, err := ParseSeverity("fatal"); err == nil {
		t.Error("ParseSeverity(fatal) should fail")
	}
	sev, err := ParseSeverity("error")
	if err != nil || sev != SeverityError {
		t.Fatalf("ParseSeverity(error) = %q, %v", sev, err)
	}
	if !SeverityError.AtLeast(SeverityWarning) || SeverityInfo.AtLeast(SeverityWarning) || !SeverityWarning.AtLeast(SeverityWarning) {
		t.Error("AtLeast ordering is wrong")
	}
}
