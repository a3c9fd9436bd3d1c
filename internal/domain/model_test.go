package domain

import "testing"

func TestParseModelID(t *testing.T) {
	tests := []struct {
		in      string
		want    ModelID
		wantErr bool
	}{
		{"tiny", ModelTiny, false},
		{"BASE", ModelBase, false},
		{" small ", ModelSmall, false},
		{"large", ModelLargeV3, false},
		{"largev3", ModelLargeV3, false},
		{"large-v3", ModelLargeV3, false},
		{"huge", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModelID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseModelID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseModelID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	cat := Catalog()
	if len(cat) != 5 {
		t.Fatalf("Catalog() has %d entries, want 5", len(cat))
	}

	var prev int64
	for _, info := range cat {
		if info.FileName != "ggml-"+string(info.ID)+".bin" {
			t.Errorf("%s: FileName = %q", info.ID, info.FileName)
		}
		if info.SizeBytes <= prev {
			t.Errorf("%s: catalog should be ordered smallest first", info.ID)
		}
		prev = info.SizeBytes
	}

	cat[0].DisplayName = "mutated"
	if info, _ := LookupModel(ModelTiny); info.DisplayName != "Tiny" {
		t.Error("Catalog() should return a copy")
	}
}
