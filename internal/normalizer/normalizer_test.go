package normalizer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/model"
)

const validRecipeJSON = `{
	"isRecipe": true,
	"title": "Shakshuka",
	"description": "Eggs poached in spiced tomato sauce.",
	"language": "en",
	"servings": 2,
	"difficulty": "easy",
	"categorySlug": "breakfast",
	"ingredients": [
		{"name": "eggs", "quantity": "4"},
		{"name": "crushed tomatoes", "quantity": "400", "unit": "g"}
	],
	"instructions": [
		{"stepNumber": 1, "description": "Simmer the tomatoes with the spices."},
		{"stepNumber": 2, "description": "Crack in the eggs and cover.", "timerMinutes": 8}
	]
}`

const notARecipeJSON = `{"isRecipe": false}`

// fakeProvider returns canned responses in order, then repeats the last one.
type fakeProvider struct {
	name      string
	responses []string
	errs      []error
	calls     int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CompleteJSON(_ context.Context, _ *client.CompletionRequest) (string, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	if f.errs != nil && f.errs[i] != nil {
		return "", f.errs[i]
	}
	return f.responses[i], nil
}

func testRaw() *model.RawContent {
	return &model.RawContent{Text: "Shakshuka. Eggs, tomatoes, cumin. Simmer sauce, poach eggs."}
}

func TestNormalize_Success(t *testing.T) {
	primary := &fakeProvider{name: "primary", responses: []string{validRecipeJSON}}
	n := New(primary, &fakeProvider{name: "fallback"}, 3, 30)

	recipe, err := n.Normalize(context.Background(), testRaw(), nil)
	require.NoError(t, err)

	assert.True(t, recipe.IsRecipe)
	assert.Equal(t, "Shakshuka", recipe.Title)
	require.Len(t, recipe.Ingredients, 2)
	assert.Equal(t, "eggs", recipe.Ingredients[0].Name)
	require.Len(t, recipe.Instructions, 2)
	assert.Equal(t, 8, recipe.Instructions[1].TimerMinutes)
	assert.Equal(t, 1, primary.calls)
}

func TestNormalize_NotARecipeIsSuccess(t *testing.T) {
	primary := &fakeProvider{name: "primary", responses: []string{notARecipeJSON}}
	n := New(primary, &fakeProvider{name: "fallback"}, 3, 30)

	recipe, err := n.Normalize(context.Background(), testRaw(), nil)
	require.NoError(t, err)
	assert.False(t, recipe.IsRecipe)
}

func TestNormalize_RetriesTransientFailure(t *testing.T) {
	primary := &fakeProvider{
		name:      "primary",
		responses: []string{"", validRecipeJSON},
		errs:      []error{fmt.Errorf("http 500"), nil},
	}
	n := New(primary, &fakeProvider{name: "fallback"}, 3, 30)

	recipe, err := n.Normalize(context.Background(), testRaw(), nil)
	require.NoError(t, err)
	assert.True(t, recipe.IsRecipe)
	assert.Equal(t, 2, primary.calls)
}

func TestNormalize_InvalidJSONIsRetried(t *testing.T) {
	primary := &fakeProvider{
		name:      "primary",
		responses: []string{`{"isRecipe": true}`, validRecipeJSON},
	}
	n := New(primary, &fakeProvider{name: "fallback"}, 3, 30)

	// isRecipe=true without title/ingredients/instructions fails the schema
	// and must be retried, never surfaced as not_a_recipe.
	recipe, err := n.Normalize(context.Background(), testRaw(), nil)
	require.NoError(t, err)
	assert.True(t, recipe.IsRecipe)
	assert.Equal(t, 2, primary.calls)
}

func TestNormalize_ExhaustsAttempts(t *testing.T) {
	primary := &fakeProvider{
		name:      "primary",
		responses: []string{""},
		errs:      []error{fmt.Errorf("http 500")},
	}
	n := New(primary, &fakeProvider{name: "fallback"}, 2, 30)

	_, err := n.Normalize(context.Background(), testRaw(), nil)
	require.Error(t, err)
	assert.Equal(t, 2, primary.calls)
}

func TestNormalize_RefusalGoesToFallbackOnce(t *testing.T) {
	primary := &fakeProvider{
		name:      "primary",
		responses: []string{""},
		errs:      []error{client.ErrProviderRefused},
	}
	fallback := &fakeProvider{name: "fallback", responses: []string{validRecipeJSON}}
	n := New(primary, fallback, 3, 30)

	recipe, err := n.Normalize(context.Background(), testRaw(), nil)
	require.NoError(t, err)
	assert.True(t, recipe.IsRecipe)
	assert.Equal(t, 1, primary.calls, "a refusal must not be retried against the primary")
	assert.Equal(t, 1, fallback.calls)
}

func TestNormalize_RefusalThenFallbackFailureIsFinal(t *testing.T) {
	primary := &fakeProvider{
		name:      "primary",
		responses: []string{""},
		errs:      []error{client.ErrProviderRefused},
	}
	fallback := &fakeProvider{
		name:      "fallback",
		responses: []string{""},
		errs:      []error{fmt.Errorf("http 500")},
	}
	n := New(primary, fallback, 3, 30)

	_, err := n.Normalize(context.Background(), testRaw(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls, "the fallback gets exactly one shot")
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid recipe", validRecipeJSON, false},
		{"not a recipe", notARecipeJSON, false},
		{"recipe missing required fields", `{"isRecipe": true}`, true},
		{"missing isRecipe", `{"title": "X"}`, true},
		{"not json", `oops`, true},
		{"ingredient without name", `{"isRecipe": true, "title": "X", "ingredients": [{"quantity": "1"}], "instructions": [{"stepNumber": 1, "description": "Y"}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
