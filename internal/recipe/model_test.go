package recipe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const teriyakiJSON = `{
	"idMeal": "52772",
	"strMeal": "Teriyaki Chicken Casserole",
	"strCategory": "Chicken",
	"strArea": "Japanese",
	"strInstructions": "Preheat oven to 350.\r\n\r\nCombine soy sauce.\nServe hot.",
	"strMealThumb": "https://www.themealdb.com/images/media/meals/wvpsxx1468256321.jpg",
	"strTags": "Meat, Casserole,",
	"strYoutube": "https://www.youtube.com/watch?v=4aZr5hZXP_s",
	"strIngredient1": "soy sauce",
	"strIngredient2": " water ",
	"strIngredient3": "",
	"strIngredient4": null,
	"strIngredient5": "brown sugar",
	"strMeasure1": "3/4 cup",
	"strMeasure2": " 1/2 cup",
	"strMeasure3": "",
	"strMeasure4": null,
	"strMeasure5": null,
	"strSource": null
}`

func TestRecipeDetailUnmarshal(t *testing.T) {
	var d RecipeDetail
	require.NoError(t, json.Unmarshal([]byte(teriyakiJSON), &d))

	assert.Equal(t, "52772", d.ID)
	assert.Equal(t, "Teriyaki Chicken Casserole", d.Name)
	assert.Equal(t, "Chicken", d.Category)
	assert.Equal(t, "Japanese", d.Area)
	assert.Equal(t, "", d.Source)
	assert.Equal(t, "soy sauce", d.Ingredients[0].Ingredient)
	assert.Equal(t, "brown sugar", d.Ingredients[4].Ingredient)
	assert.Equal(t, IngredientSlot{}, d.Ingredients[19])
}

func TestIngredientList(t *testing.T) {
	var d RecipeDetail
	require.NoError(t, json.Unmarshal([]byte(teriyakiJSON), &d))

	list := d.IngredientList()
	assert.Equal(t, []IngredientSlot{
		{Ingredient: "soy sauce", Measure: "3/4 cup"},
		{Ingredient: "water", Measure: "1/2 cup"},
		{Ingredient: "brown sugar", Measure: ""},
	}, list)
}

func TestInstructionStepsAndTags(t *testing.T) {
	var d RecipeDetail
	require.NoError(t, json.Unmarshal([]byte(teriyakiJSON), &d))

	assert.Equal(t, []string{"Preheat oven to 350.", "Combine soy sauce.", "Serve hot."}, d.InstructionSteps())
	assert.Equal(t, []string{"Meat", "Casserole"}, d.TagList())

	d.Tags = ""
	assert.Nil(t, d.TagList())
}

func TestRecipeDetailMarshalKeepsFlatLayout(t *testing.T) {
	var d RecipeDetail
	require.NoError(t, json.Unmarshal([]byte(teriyakiJSON), &d))

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var flat map[string]string
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "52772", flat["idMeal"])
	assert.Equal(t, "brown sugar", flat["strIngredient5"])
	assert.Equal(t, "", flat["strIngredient20"])
}

func TestRecipeSummaryJSON(t *testing.T) {
	r := Recipe{ID: "1", Name: "Salmon Prawn Risotto", Thumbnail: "t.jpg"}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"idMeal":"1","strMeal":"Salmon Prawn Risotto","strMealThumb":"t.jpg"}`, string(data))
}

func TestNameContains(t *testing.T) {
	r := Recipe{Name: "Baked SALMON with fennel"}
	assert.True(t, r.NameContains("salmon"))
	assert.True(t, r.NameContains(""))
	assert.False(t, r.NameContains("tuna"))
}

func TestDetailAccessorsOnValue(t *testing.T) {
	detail := RecipeDetail{
		Recipe:       Recipe{ID: "52977", Name: "Corba", Category: "Side"},
		Instructions: "Fry onion.\r\nAdd lentils.",
		Tags:         "Soup, ",
	}
	detail.Ingredients[0] = IngredientSlot{Ingredient: "Lentils", Measure: "1 cup"}

	details := []RecipeDetail{detail}
	for _, d := range details {
		assert.Equal(t, "Corba", d.Summary().Name)
		assert.Equal(t, []IngredientSlot{{Ingredient: "Lentils", Measure: "1 cup"}}, d.IngredientList())
		assert.Equal(t, []string{"Fry onion.", "Add lentils."}, d.InstructionSteps())
		assert.Equal(t, []string{"Soup"}, d.TagList())
	}
}
