package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadTranscriptText(t *testing.T) {
	const content = "Метанаблюдение открывает присутствие.\nВторая строка."
	for _, name := range []string{"lecture.txt", "lecture.md", "lecture.TXT"} {
		path := writeFile(t, name, content)
		got, err := LoadTranscript(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != content {
			t.Errorf("%s: content = %q", name, got)
		}
	}
}

func TestLoadTranscriptUnsupported(t *testing.T) {
	path := writeFile(t, "lecture.docx", "текст")
	if _, err := LoadTranscript(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadTranscriptMissingFile(t *testing.T) {
	if _, err := LoadTranscript(filepath.Join(t.TempDir(), "нет.txt")); err == nil {
		t.Error("missing file loaded without error")
	}
}

func TestSplitBlocksEmpty(t *testing.T) {
	if got := SplitBlocks("   \n\t ", 10); got != nil {
		t.Errorf("blocks = %v, want nil", got)
	}
}

func TestSplitBlocksNonPositiveBudget(t *testing.T) {
	const text = "Первое предложение. Второе предложение."
	got := SplitBlocks(text, 0)
	if len(got) != 1 || got[0] != text {
		t.Errorf("blocks = %v, want whole text", got)
	}
}

func TestSplitBlocksBreaksAtSentenceEnd(t *testing.T) {
	var sentences []string
	for i := 0; i < 10; i++ {
		sentences = append(sentences, "Практика метанаблюдения раскрывает поле внимания постепенно.")
	}
	text := strings.Join(sentences, " ")

	blocks := SplitBlocks(text, 12)
	if len(blocks) < 2 {
		t.Fatalf("blocks = %d, want a split", len(blocks))
	}
	for i, block := range blocks {
		if !strings.HasSuffix(block, ".") {
			t.Errorf("block %d does not end at a sentence: %q", i, block)
		}
	}
	if joined := strings.Join(blocks, " "); joined != text {
		t.Errorf("content lost in splitting:\n%q\n%q", joined, text)
	}
}

func TestSplitBlocksShortText(t *testing.T) {
	const text = "Одно короткое предложение."
	got := SplitBlocks(text, 100)
	if len(got) != 1 || got[0] != text {
		t.Errorf("blocks = %v", got)
	}
}
