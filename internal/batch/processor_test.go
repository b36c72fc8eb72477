package batch

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReadBatchFile(t *testing.T) {
	tests := []struct {
		name        string
		fileContent string
		want        func(dir string) []Entry
		wantErr     string
	}{
		{
			name:        "empty file",
			fileContent: "",
			want:        func(string) []Entry { return nil },
		},
		{
			name:        "only whitespace and comments",
			fileContent: "   \n\t\r\n# cat = cat.wav\n   ",
			want:        func(string) []Entry { return nil },
		},
		{
			name: "relative and absolute paths",
			fileContent: `cat = cat.wav
water = /srv/audio/water.mp3
tomato = https://example.com/tomato.ogg`,
			want: func(dir string) []Entry {
				return []Entry{
					{Word: "cat", AudioPath: filepath.Join(dir, "cat.wav"), Line: 1},
					{Word: "water", AudioPath: "/srv/audio/water.mp3", Line: 2},
					{Word: "tomato", AudioPath: "https://example.com/tomato.ogg", Line: 3},
				}
			},
		},
		{
			name: "whitespace, CRLF and comments",
			fileContent: "\r\n# header\r\n  cat   =  samples/cat.wav  \r\n\r\ndog=dog.wav\r\n",
			want: func(dir string) []Entry {
				return []Entry{
					{Word: "cat", AudioPath: filepath.Join(dir, "samples", "cat.wav"), Line: 3},
					{Word: "dog", AudioPath: filepath.Join(dir, "dog.wav"), Line: 5},
				}
			},
		},
		{
			name:        "missing separator",
			fileContent: "cat\n",
			wantErr:     "words.txt:1: expected 'word = audio-file'",
		},
		{
			name:        "missing word",
			fileContent: "cat = cat.wav\n = dog.wav\n",
			wantErr:     "words.txt:2: missing word",
		},
		{
			name:        "missing audio",
			fileContent: "cat =   \n",
			wantErr:     "missing audio file for \"cat\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			file := filepath.Join(dir, "words.txt")
			if err := os.WriteFile(file, []byte(tt.fileContent), 0644); err != nil {
				t.Fatalf("Failed to write batch file: %v", err)
			}

			got, err := ReadBatchFile(file)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ReadBatchFile() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadBatchFile() unexpected error: %v", err)
			}
			if want := tt.want(dir); !reflect.DeepEqual(got, want) {
				t.Errorf("ReadBatchFile() = %#v, want %#v", got, want)
			}
		})
	}
}

func TestReadBatchFile_Missing(t *testing.T) {
	_, err := ReadBatchFile(filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil || !strings.Contains(err.Error(), "failed to read batch file") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestSummaryString(t *testing.T) {
	s := Summary{Total: 3, Processed: 2, Failed: 1}.String()
	for _, want := range []string{"Total words: 3", "Processed: 2", "Errors: 1"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary %q missing %q", s, want)
		}
	}
	if strings.Contains(Summary{Total: 1, Processed: 1}.String(), "Errors") {
		t.Error("summary without failures should not list errors")
	}
}
