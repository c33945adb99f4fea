package recipe

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// MaxIngredients is the number of positional ingredient/measure slots a detail record carries.
const MaxIngredients = 20

// Recipe is the summary record used in list views and persisted in favorites.
type Recipe struct {
	ID        string `json:"idMeal"`
	Name      string `json:"strMeal"`
	Thumbnail string `json:"strMealThumb"`
	Category  string `json:"strCategory,omitempty"`
	Area      string `json:"strArea,omitempty"`
}

// IngredientSlot is one positional (ingredient, measure) pair. Empty slots are kept
// so that positions line up with the remote record.
type IngredientSlot struct {
	Ingredient string `json:"ingredient"`
	Measure    string `json:"measure"`
}

// RecipeDetail is a Recipe plus instructions, media links, tags and ingredients.
type RecipeDetail struct {
	Recipe
	Instructions string
	YouTube      string
	Tags         string
	Source       string
	Ingredients  [MaxIngredients]IngredientSlot
}

// Category is a recipe category as listed by the remote service.
type Category struct {
	ID          string `json:"idCategory"`
	Name        string `json:"strCategory"`
	Thumbnail   string `json:"strCategoryThumb"`
	Description string `json:"strCategoryDescription"`
}

// UnmarshalJSON implements the json.Unmarshaler interface for RecipeDetail.
// The remote record spreads ingredients over strIngredient1..20 and strMeasure1..20.
func (d *RecipeDetail) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	field := func(key string) string {
		if v, ok := raw[key]; ok && v != nil {
			return *v
		}
		return ""
	}

	*d = RecipeDetail{
		Recipe: Recipe{
			ID:        field("idMeal"),
			Name:      field("strMeal"),
			Thumbnail: field("strMealThumb"),
			Category:  field("strCategory"),
			Area:      field("strArea"),
		},
		Instructions: field("strInstructions"),
		YouTube:      field("strYoutube"),
		Tags:         field("strTags"),
		Source:       field("strSource"),
	}

	for i := 0; i < MaxIngredients; i++ {
		n := strconv.Itoa(i + 1)
		d.Ingredients[i] = IngredientSlot{
			Ingredient: field("strIngredient" + n),
			Measure:    field("strMeasure" + n),
		}
	}
	return nil
}

// MarshalJSON writes the detail back in the flat remote layout.
func (d RecipeDetail) MarshalJSON() ([]byte, error) {
	out := map[string]string{
		"idMeal":          d.ID,
		"strMeal":         d.Name,
		"strMealThumb":    d.Thumbnail,
		"strCategory":     d.Category,
		"strArea":         d.Area,
		"strInstructions": d.Instructions,
		"strYoutube":      d.YouTube,
		"strTags":         d.Tags,
		"strSource":       d.Source,
	}
	for i, slot := range d.Ingredients {
		n := strconv.Itoa(i + 1)
		out["strIngredient"+n] = slot.Ingredient
		out["strMeasure"+n] = slot.Measure
	}
	return json.Marshal(out)
}

// Summary returns the summary part of the detail record.
func (d RecipeDetail) Summary() Recipe {
	return d.Recipe
}

// IngredientList returns the non-empty ingredient slots in positional order,
// with surrounding whitespace removed.
func (d RecipeDetail) IngredientList() []IngredientSlot {
	var list []IngredientSlot
	for _, slot := range d.Ingredients {
		ingredient := strings.TrimSpace(slot.Ingredient)
		if ingredient == "" {
			continue
		}
		list = append(list, IngredientSlot{
			Ingredient: ingredient,
			Measure:    strings.TrimSpace(slot.Measure),
		})
	}
	return list
}

var lineBreak = regexp.MustCompile(`\r\n|\n`)

// InstructionSteps splits the instructions into non-blank lines.
func (d RecipeDetail) InstructionSteps() []string {
	var steps []string
	for _, line := range lineBreak.Split(d.Instructions, -1) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		steps = append(steps, line)
	}
	return steps
}

// TagList splits the comma separated tag string.
func (d RecipeDetail) TagList() []string {
	var tags []string
	for _, tag := range strings.Split(d.Tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// NameContains reports whether the recipe name contains query, ignoring case.
func (r Recipe) NameContains(query string) bool {
	return strings.Contains(strings.ToLower(r.Name), strings.ToLower(query))
}
