package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaimenu/internal/catalog"
	"kaimenu/internal/config"
	"kaimenu/internal/generation"
	"kaimenu/internal/llm"
	"kaimenu/internal/menu"
)

const testCatalog = `
ingredients:
  - name: Rice
    price_per_100g: "0.50"
    energy_kj: "1500"
    dietaries: [Vegan]
  - name: Chicken Breast
    price_per_100g: "1.20"
    energy_kj: "1100"
  - name: Broccoli
    price_per_100g: "0.60"
    energy_kj: "141"
    dietaries: [Vegan]
  - name: Carrot
    price_per_100g: "0.40"
    energy_kj: "170"
    dietaries: [Vegan]
  - name: Olive Oil
    price_per_100g: "1.25"
    energy_kj: "3700"
    dietaries: [Vegan]
`

// 340 g, 3628.50 kJ, cost 2.62.
const goodMenu = `{"meal_name":"Chicken Rice Bowl","description":"Rice and chicken.","dietary":"Standard","items":[
    {"name":"Rice","quantity_g":120},
    {"name":"Chicken Breast","quantity_g":120},
    {"name":"Broccoli","quantity_g":50},
    {"name":"Carrot","quantity_g":40},
    {"name":"Olive Oil","quantity_g":10}]}`

// fails on weight first
const riceOnly = `{"meal_name":"Rice Only","description":"Just rice.","dietary":"Standard","items":[
    {"name":"Rice","quantity_g":100}]}`

const testResponse = "```json\n" + `{"menus":[` + goodMenu + `,` + riceOnly + `]}` + "\n```"

type fakeClient struct {
	prompts []string
}

func (f *fakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return testResponse, nil
}

func setupCLI(t *testing.T) (string, *fakeClient) {
	t.Helper()
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MENU_CONSTRAINTS_FILE", "")
	t.Setenv("R2_ENDPOINT", "")

	dir := t.TempDir()
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "kai.db"))

	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))
	return path, &fakeClient{}
}

func run(t *testing.T, client llm.Client, stdin string, args ...string) (string, error) {
	t.Helper()
	c := &cli{newClient: func(ctx context.Context, cfg config.Config) (llm.Client, error) {
		return client, nil
	}}
	root := c.rootCmd()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRender(t *testing.T) {
	cat, client := setupCLI(t)

	out, err := run(t, client, "", "render", "--catalog", cat, "--batch-size", "4", "--dietary", "Vegan")
	require.NoError(t, err)

	var req llm.GenerationRequest
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	assert.Equal(t, 4, req.Constraints.BatchSize)
	assert.Equal(t, "Vegan", req.Constraints.Dietary)
	assert.Contains(t, req.Prompt, "Rice, 0.50, 1500")
	assert.NotContains(t, req.Prompt, "Chicken Breast, 1.20")

	parsed, err := llm.ParseConstraints(req.Prompt)
	require.NoError(t, err)
	assert.Equal(t, 4, parsed.BatchSize)
}

func TestRender_PromptOnly(t *testing.T) {
	cat, client := setupCLI(t)

	out, err := run(t, client, "", "render", "--catalog", cat, "--prompt-only")
	require.NoError(t, err)
	assert.Contains(t, out, "Chicken Breast, 1.20, 1100")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestRender_EmptyCatalog(t *testing.T) {
	cat, client := setupCLI(t)

	_, err := run(t, client, "", "render", "--catalog", cat, "--dietary", "Kosher")
	assert.ErrorIs(t, err, generation.ErrEmptyCatalog)
}

func TestRender_InvalidConstraints(t *testing.T) {
	cat, client := setupCLI(t)

	_, err := run(t, client, "", "render", "--catalog", cat, "--batch-size", "0")
	assert.ErrorIs(t, err, menu.ErrInvalidConstraints)
}

type validationOut struct {
	Name       string       `json:"meal_name"`
	Verdict    menu.Verdict `json:"verdict"`
	Violations []string     `json:"violations"`
}

func TestValidate_Stdin(t *testing.T) {
	cat, client := setupCLI(t)

	out, err := run(t, client, testResponse, "validate", "--catalog", cat, "--all", "-")
	assert.ErrorIs(t, err, errRejected)

	var got []validationOut
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)

	assert.Equal(t, "Chicken Rice Bowl", got[0].Name)
	assert.True(t, got[0].Verdict.Valid)
	assert.Empty(t, got[0].Violations)

	assert.Equal(t, "Rice Only", got[1].Name)
	assert.False(t, got[1].Verdict.Valid)
	assert.Equal(t, "total_g=100 not in [200,350]", got[1].Verdict.Reason)
	assert.GreaterOrEqual(t, len(got[1].Violations), 2)
}

func TestValidate_File(t *testing.T) {
	cat, client := setupCLI(t)

	path := filepath.Join(t.TempDir(), "menus.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"menus":[`+goodMenu+`]}`), 0o600))

	_, err := run(t, client, "", "validate", "--catalog", cat, path)
	assert.NoError(t, err)
}

func TestValidate_Malformed(t *testing.T) {
	cat, client := setupCLI(t)

	_, err := run(t, client, "no json here", "validate", "--catalog", cat, "-")
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
}

func TestGenerate_WithFeedback(t *testing.T) {
	cat, client := setupCLI(t)

	out, err := run(t, client, "", "generate", "--catalog", cat, "--batch-size", "2", "--feedback")
	require.NoError(t, err)

	var cycles []generation.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &cycles))
	require.Len(t, cycles, 2)
	assert.Equal(t, generation.StateValidated, cycles[0].State)
	assert.Len(t, cycles[0].Accepted, 1)
	assert.Len(t, cycles[0].Rejected, 1)
	require.NotNil(t, cycles[1].ParentID)
	assert.Equal(t, cycles[0].ID, *cycles[1].ParentID)

	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[1], "- Rice Only: total_g=100 not in [200,350]")
}

func TestImport(t *testing.T) {
	cat, client := setupCLI(t)

	out, err := run(t, client, "", "import", "--catalog", cat)
	require.NoError(t, err)
	assert.Equal(t, "imported 5 ingredients into sqlite\n", out)

	// the seeded store now backs render without --catalog
	out, err = run(t, client, "", "render", "--prompt-only")
	require.NoError(t, err)
	assert.Contains(t, out, "Olive Oil, 1.25, 3700")
}

func TestImport_RequiresCatalog(t *testing.T) {
	_, client := setupCLI(t)

	_, err := run(t, client, "", "import")
	assert.ErrorContains(t, err, "--catalog")
}

func TestSeedCatalogParses(t *testing.T) {
	repo, err := catalog.LoadFixture(filepath.Join("..", "..", "data", "catalog.yaml"))
	require.NoError(t, err)

	ingredients, err := repo.ListIngredients(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, ingredients)
}
