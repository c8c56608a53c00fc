package assist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdrezo/claude-bridge/internal/config"
)

type recordingAsker struct {
	reply  string
	err    error
	text   string
	system string
	calls  int
}

func (r *recordingAsker) SendMessageWithoutHistory(_ context.Context, text, system string) (string, error) {
	r.calls++
	r.text, r.system = text, system
	return r.reply, r.err
}

func TestDetectLanguage(t *testing.T) {
	tests := map[string]string{
		"index.php":       "PHP",
		"page.HTM":        "HTML",
		"app.js":          "JavaScript",
		"style.css":       "CSS",
		"Main.java":       "Java",
		"main.go":         "Go",
		"/src/lib/mod.rs": "Rust",
		"query.sql":       "SQL",
		"Makefile":        "code",
		"notes.unknown":   "code",
	}
	for file, want := range tests {
		assert.Equal(t, want, DetectLanguage(file), file)
	}
}

func TestFenceTag(t *testing.T) {
	assert.Equal(t, "go", FenceTag("Go"))
	assert.Equal(t, "cpp", FenceTag("C++"))
	assert.Equal(t, "", FenceTag(GenericLanguage))
}

func TestExplainCode(t *testing.T) {
	asker := &recordingAsker{reply: "It prints hello."}
	a := New(asker, nil)

	got, err := a.ExplainCode(context.Background(), "fmt.Println(\"hello\")", "Go")
	require.NoError(t, err)
	assert.Equal(t, "It prints hello.", got)

	assert.Equal(t, "Here is some Go code to analyse:\n\n```go\nfmt.Println(\"hello\")\n```\n\n"+explainInstruction, asker.text)
	assert.Equal(t, expertPrompt, asker.system)
}

func TestExplainCode_ResponseLanguage(t *testing.T) {
	asker := &recordingAsker{reply: "ok"}
	_, err := New(asker, config.Settings{ResponseLanguage: "French"}.SystemPrompt).ExplainCode(context.Background(), "x := 1", "Go")
	require.NoError(t, err)
	assert.Equal(t, expertPrompt+" Respond in French.", asker.system)
}

func TestExplainCode_NoInput(t *testing.T) {
	asker := &recordingAsker{}
	_, err := New(asker, nil).ExplainCode(context.Background(), " \n\t", "Go")
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Zero(t, asker.calls)
}

func TestGenerateCode(t *testing.T) {
	asker := &recordingAsker{reply: "```php\n<?php echo 'hi';\n```"}

	got, err := New(asker, nil).GenerateCode(context.Background(), "  print hi ", "PHP")
	require.NoError(t, err)
	assert.Equal(t, "<?php echo 'hi';", got)
	assert.Equal(t, "Generate PHP code for: print hi\n\nReturn only the code, without any additional explanation.", asker.text)
	assert.Equal(t, generatePrompt, asker.system)
}

func TestGenerateCode_Errors(t *testing.T) {
	_, err := New(&recordingAsker{}, nil).GenerateCode(context.Background(), "", "Go")
	assert.ErrorIs(t, err, ErrNoInput)

	boom := errors.New("boom")
	_, err = New(&recordingAsker{err: boom}, nil).GenerateCode(context.Background(), "a stack", "Go")
	assert.ErrorIs(t, err, boom)
}

func TestCleanGeneratedCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "x := 1", "x := 1"},
		{"language fence", "```go\nx := 1\n```", "x := 1"},
		{"bare fence", "```\nx := 1\n```\n", "x := 1"},
		{"info string with symbols", "```c++\nint x;\n```", "int x;"},
		{"surrounding whitespace", "\n\n```js\nlet a = 1;\nlet b = 2;\n```  \n", "let a = 1;\nlet b = 2;"},
		{"inner fences kept", "```md\nuse ``` for code\n```", "use ``` for code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanGeneratedCode(tt.in))
		})
	}
}

func TestAnalysisMessage(t *testing.T) {
	got := AnalysisMessage("echo 1;", "PHP", "index.php")
	assert.Equal(t, "Analyse this PHP code (file: index.php):\n\n```php\necho 1;\n```", got)
}
