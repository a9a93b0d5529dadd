package errors

import "testing"

func TestValidateZoom(t *testing.T) {
	tests := []struct {
		name    string
		zoom    uint8
		wantErr bool
	}{
		{"zero", 0, false},
		{"typical", 14, false},
		{"max", MaxZoom, false},
		{"past max", MaxZoom + 1, true},
		{"extreme", 255, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateZoom(tt.zoom)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateZoom(%d) error = %v, wantErr %v", tt.zoom, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidTile) {
				t.Errorf("ValidateZoom(%d) code = %v, want %v", tt.zoom, GetCode(err), ErrCodeInvalidTile)
			}
		})
	}
}

func TestValidateTile(t *testing.T) {
	tests := []struct {
		name    string
		zoom    uint8
		x, y    uint32
		wantErr bool
	}{
		{"origin at zoom 0", 0, 0, 0, false},
		{"x out of range at zoom 0", 0, 1, 0, true},
		{"y out of range at zoom 0", 0, 0, 1, true},
		{"corner at zoom 4", 4, 15, 15, false},
		{"x past corner at zoom 4", 4, 16, 15, true},
		{"deep zoom", 22, 4194303, 4194303, false},
		{"zoom out of range", 31, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTile(tt.zoom, tt.x, tt.y)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTile(%d, %d, %d) error = %v, wantErr %v", tt.zoom, tt.x, tt.y, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		wantErr       bool
	}{
		{"default tile", 512, 512, false},
		{"zero width", 0, 512, true},
		{"zero height", 512, 0, true},
		{"max", MaxDimension, MaxDimension, false},
		{"too wide", MaxDimension + 1, 512, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDimensions(tt.width, tt.height)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDimensions(%d, %d) error = %v, wantErr %v", tt.width, tt.height, err, tt.wantErr)
			}
		})
	}
}

func TestValidateStylePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple path", "style.json", false},
		{"nested path", "styles/dark/style.json", false},
		{"absolute path", "/srv/styles/street.json", false},
		{"empty", "", true},
		{"null byte", "style\x00.json", true},
		{"control character", "style\n.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStylePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStylePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}
