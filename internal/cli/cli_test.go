package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/photomark/internal/apperror"
	"github.com/abdul-hamid-achik/photomark/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default. The commands are
// package globals, so values would otherwise leak between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	resetFlags(rootCmd)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRootCommand(t *testing.T) {
	code, stdout, _ := runCLI(t, "--help")

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "photomark")
	for _, name := range []string{"size", "orientation", "dims", "resize", "strip", "watermark", "process", "batch"} {
		assert.Contains(t, stdout, name)
	}
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "photomark dev")
}

func TestSizeCommand(t *testing.T) {
	in := testutil.WriteJPEG(t, t.TempDir(), "in.jpg", 40, 20)

	code, stdout, _ := runCLI(t, "size", in)

	assert.Equal(t, 0, code)
	assert.Equal(t, "40x20\n", stdout)
}

func TestSizeCommand_JSON(t *testing.T) {
	in := testutil.WriteJPEG(t, t.TempDir(), "in.jpg", 40, 20)

	code, stdout, _ := runCLI(t, "--json", "size", in)
	require.Equal(t, 0, code)

	var got struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, 40, got.Width)
	assert.Equal(t, 20, got.Height)
}

func TestSizeCommand_UnreadableFileIsEngineError(t *testing.T) {
	in := testutil.WriteFile(t, t.TempDir(), "broken.jpg", []byte("not an image"))

	code, _, stderr := runCLI(t, "size", in)

	assert.Equal(t, apperror.ExitEngine, code)
	assert.Contains(t, stderr, "Error:")
}

func TestSizeCommand_JSONError(t *testing.T) {
	in := testutil.WriteFile(t, t.TempDir(), "broken.jpg", []byte("not an image"))

	code, _, stderr := runCLI(t, "--json", "size", in)
	require.Equal(t, apperror.ExitEngine, code)

	var resp apperror.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(stderr), &resp))
	assert.Equal(t, "engine_error", resp.Code)
}

func TestOrientationCommand(t *testing.T) {
	in := testutil.WriteEXIFJPEG(t, t.TempDir(), "in.jpg", 40, 20, 8)

	code, stdout, _ := runCLI(t, "orientation", in)

	assert.Equal(t, 0, code)
	assert.Equal(t, "LeftBottom\n", stdout)
}

func TestDimsCommand(t *testing.T) {
	dir := t.TempDir()
	landscape := testutil.WriteJPEG(t, dir, "landscape.jpg", 40, 20)
	portrait := testutil.WriteJPEG(t, dir, "portrait.jpg", 20, 40)

	code, stdout, _ := runCLI(t, "dims", "1200", "800", landscape)
	assert.Equal(t, 0, code)
	assert.Equal(t, "1200x800\n", stdout)

	code, stdout, _ = runCLI(t, "dims", "1200", "800", portrait)
	assert.Equal(t, 0, code)
	assert.Equal(t, "800x1200\n", stdout)
}

func TestDimsCommand_RejectsNonPositiveSide(t *testing.T) {
	in := testutil.WriteJPEG(t, t.TempDir(), "in.jpg", 40, 20)

	code, _, _ := runCLI(t, "dims", "0", "800", in)

	assert.Equal(t, apperror.ExitConfig, code)
}

func TestResizeCommand(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteJPEG(t, dir, "in.jpg", 40, 20)
	out := filepath.Join(dir, "out.jpg")

	code, _, stderr := runCLI(t, "resize", in, out, "--width", "12", "--height", "8")
	require.Equal(t, 0, code, stderr)

	w, h := testutil.Dimensions(t, out)
	assert.Equal(t, 12, w)
	assert.Equal(t, 8, h)
}

func TestResizeCommand_ExclusiveFlags(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteJPEG(t, dir, "in.jpg", 40, 20)

	code, _, _ := runCLI(t, "resize", in, filepath.Join(dir, "out.jpg"), "--width", "12", "--long", "20")

	assert.Equal(t, apperror.ExitConfig, code)
}

func TestStripCommand(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteEXIFJPEG(t, dir, "in.jpg", 40, 20, 6)
	out := filepath.Join(dir, "out.jpg")

	code, _, stderr := runCLI(t, "strip", in, out)
	require.Equal(t, 0, code, stderr)

	assert.False(t, testutil.HasEXIF(testutil.ReadFile(t, out)))
	w, h := testutil.Dimensions(t, out)
	assert.Equal(t, 40, w)
	assert.Equal(t, 20, h)
}

func TestStripCommand_LeftBottomRotates(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteEXIFJPEG(t, dir, "in.jpg", 40, 20, 8)
	out := filepath.Join(dir, "out.jpg")

	code, _, stderr := runCLI(t, "strip", in, out)
	require.Equal(t, 0, code, stderr)

	w, h := testutil.Dimensions(t, out)
	assert.Equal(t, 20, w)
	assert.Equal(t, 40, h)
}

func TestStripCommand_UnknownOrientation(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteEXIFJPEG(t, dir, "in.jpg", 40, 20, 8)
	out := filepath.Join(dir, "out.jpg")

	code, _, stderr := runCLI(t, "strip", in, out, "--orientation", "LeftBotom")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "LeftBotom")
	assert.NoFileExists(t, out)

	code, _, _ = runCLI(t, "process", in, out, "--orientation", "sideways")
	assert.Equal(t, 2, code)
	assert.NoFileExists(t, out)
}

func TestWatermarkCommand(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteJPEG(t, dir, "in.jpg", 64, 48)
	out := filepath.Join(dir, "out.png")

	code, _, stderr := runCLI(t, "watermark", in, out, "--text", "(c) Studio", "--size", "10")
	require.Equal(t, 0, code, stderr)

	w, h := testutil.Dimensions(t, out)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
}

func TestWatermarkCommand_IncompleteFontConfig(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteJPEG(t, dir, "in.jpg", 64, 48)
	out := filepath.Join(dir, "out.jpg")
	fontFile := testutil.WriteFile(t, dir, "font.yaml", []byte(`font: goregular
text: hello
size: 12
x: 5
y: 5
gravity: SouthEast
stroke_width: 1
fill_color: white
`))

	code, _, stderr := runCLI(t, "watermark", in, out, "--font-config", fontFile)

	assert.Equal(t, apperror.ExitConfig, code)
	assert.Contains(t, stderr, "stroke_color")
	assert.NoFileExists(t, out)
}

func TestProcessCommand(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteEXIFJPEG(t, dir, "in.jpg", 300, 200, 8)
	out := filepath.Join(dir, "out.jpg")

	code, stdout, stderr := runCLI(t, "--json", "process", in, out, "--long", "150", "--short", "100", "--text", "mark", "--size", "10")
	require.Equal(t, 0, code, stderr)

	var res struct {
		Path     string `json:"path"`
		Metadata struct {
			Width    int    `json:"width"`
			Height   int    `json:"height"`
			Format   string `json:"format"`
			KeptExif bool   `json:"kept_exif"`
			Rotated  bool   `json:"rotated"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, out, res.Path)
	assert.Equal(t, "jpeg", res.Metadata.Format)
	assert.True(t, res.Metadata.Rotated)
	assert.False(t, res.Metadata.KeptExif)

	w, h := testutil.Dimensions(t, out)
	assert.Equal(t, 100, w)
	assert.Equal(t, 150, h)
	assert.False(t, testutil.HasEXIF(testutil.ReadFile(t, out)))
}

func TestProcessCommand_ArchiveKeepsExif(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteEXIFJPEG(t, dir, "in.jpg", 40, 20, 6)
	out := filepath.Join(dir, "out.jpg")

	code, _, stderr := runCLI(t, "process", in, out, "--profile", "archive")
	require.Equal(t, 0, code, stderr)

	assert.True(t, testutil.HasEXIF(testutil.ReadFile(t, out)))
}

func TestProcessCommand_UnknownProfile(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteJPEG(t, dir, "in.jpg", 40, 20)

	code, _, stderr := runCLI(t, "process", in, filepath.Join(dir, "out.jpg"), "--profile", "poster")

	assert.Equal(t, apperror.ExitConfig, code)
	assert.Contains(t, stderr, "poster")
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	testutil.WriteJPEG(t, src, "a.jpg", 40, 20)
	testutil.WriteJPEG(t, src, "b.jpg", 20, 40)

	code, stdout, stderr := runCLI(t, "--json", "batch", src, "--out", dst, "--profile", "thumbnail")
	require.Equal(t, 0, code, stderr)

	var report batchJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 2, report.Succeeded)
	assert.NotEmpty(t, report.RunID)

	w, h := testutil.Dimensions(t, filepath.Join(dst, "a.jpg"))
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
	w, h = testutil.Dimensions(t, filepath.Join(dst, "b.jpg"))
	assert.Equal(t, 240, w)
	assert.Equal(t, 320, h)
}

func TestBatchCommand_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	testutil.WriteJPEG(t, src, "good.jpg", 40, 20)
	testutil.WriteFile(t, src, "broken.jpg", []byte("not an image"))

	code, _, stderr := runCLI(t, "batch", src, "--out", dst)

	assert.Equal(t, apperror.ExitEngine, code)
	assert.Contains(t, stderr, "broken.jpg")
	assert.FileExists(t, filepath.Join(dst, "good.jpg"))
	assert.NoFileExists(t, filepath.Join(dst, "broken.jpg"))
}

func TestBatchCommand_RulesSkip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	testutil.WriteJPEG(t, src, "keep.jpg", 40, 20)
	testutil.WriteJPEG(t, src, "draft-1.jpg", 40, 20)
	rules := testutil.WriteFile(t, dir, "rules.yaml", []byte(`files:
  - pattern: "draft-*"
    skip: true
`))

	code, stdout, stderr := runCLI(t, "--json", "batch", src, "--out", dst, "--rules", rules)
	require.Equal(t, 0, code, stderr)

	var report batchJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 1, report.Succeeded)
	assert.Len(t, report.Skipped, 1)
	assert.NoFileExists(t, filepath.Join(dst, "draft-1.jpg"))
}

func TestBatchCommand_UploadNeedsStorage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	testutil.WriteJPEG(t, src, "a.jpg", 40, 20)
	t.Setenv("PHOTOMARK_S3_ENDPOINT", "")
	t.Setenv("PHOTOMARK_S3_BUCKET", "")

	code, _, stderr := runCLI(t, "batch", src, "--out", filepath.Join(dir, "dst"), "--upload")

	assert.Equal(t, apperror.ExitConfig, code)
	assert.Contains(t, stderr, "storage")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	code, _, stderr := runCLI(t, "--config", path, "config", "init")
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, path)

	code, stdout, _ := runCLI(t, "--config", path, "config", "path")
	assert.Equal(t, 0, code)
	assert.Equal(t, path+"\n", stdout)

	code, stdout, _ = runCLI(t, "--config", path, "--json", "config", "show")
	require.Equal(t, 0, code)
	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &shown))
	assert.EqualValues(t, 85, shown["quality"])
	assert.Contains(t, shown["profiles"], "web")
	assert.Equal(t, []any{"resize", "strip", "watermark"}, shown["stages"])
}

func TestInvalidConfigIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "config.yaml", []byte("quality: 500\n"))
	in := testutil.WriteJPEG(t, dir, "in.jpg", 40, 20)

	code, _, _ := runCLI(t, "--config", path, "size", in)

	assert.Equal(t, apperror.ExitConfig, code)
}

func TestMetricsFile(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteJPEG(t, dir, "in.jpg", 40, 20)
	metricsPath := filepath.Join(dir, "photomark.prom")

	code, _, stderr := runCLI(t, "--metrics-file", metricsPath, "size", in)
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "photomark_operations_total")
}
