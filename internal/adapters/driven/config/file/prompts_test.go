package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".faersight", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptCaseSummary)
	require.NoError(t, err)

	for _, f := range []string{"case_summary.txt", "insights.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_CaseSummaryHasTwoPlaceholders(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	tmpl, err := store.Load(driven.PromptCaseSummary)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(tmpl, "%s"))

	rendered := fmt.Sprintf(tmpl, "Patient Information:\n- Age: 54", "OZEMPIC")
	assert.Contains(t, rendered, "- Age: 54")
	assert.Contains(t, rendered, "starting OZEMPIC")
	assert.NotContains(t, rendered, "%!")
}

func TestPromptStore_InsightsHasNoPlaceholders(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	tmpl, err := store.Load(driven.PromptInsights)
	require.NoError(t, err)
	assert.NotContains(t, tmpl, "%s")
}

func TestPromptStore_UserEditsWin(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptInsights)
	require.NoError(t, err)

	custom := "Answer in one sentence."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "insights.txt"), []byte(custom+"\n"), 0600))

	// Cached until reload.
	got, err := store.Load(driven.PromptInsights)
	require.NoError(t, err)
	assert.NotEqual(t, custom, got)

	store.Reload()
	got, err = store.Load(driven.PromptInsights)
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}

func TestPromptStore_ExistingFilesNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "case_summary.txt"), []byte("mine %s %s"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	got, err := store.Load(driven.PromptCaseSummary)
	require.NoError(t, err)
	assert.Equal(t, "mine %s %s", got)
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPromptStore_MismatchedPlaceholdersIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "case_summary.txt"), []byte("only the drug: %s"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	got, err := store.Load(driven.PromptCaseSummary)
	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptCaseSummary], got)
}

func TestDefaultPrompts_Embedded(t *testing.T) {
	assert.Contains(t, defaultPrompts, driven.PromptCaseSummary)
	assert.Contains(t, defaultPrompts, driven.PromptInsights)
	assert.NotContains(t, defaultPrompts, "README")
}

func TestPromptStore_FallsBackWhenDirUnusable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	got, err := store.Load(driven.PromptInsights)
	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptInsights], got)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Load(driven.PromptCaseSummary)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
