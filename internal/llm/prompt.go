package llm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"kaimenu/internal/menu"
)

const (
	cuisineCues  = "Teriyaki, Karaage, Sichuan, Satay, Miso, Kiwi, Tex-Mex, Mediterranean, Italian, Japanese, Burger, Indian, Stir-Fry, Chinese, Viet, Māori, Islander"
	nameSuffixes = "Bowl, Box, Wrap, Stack, Smash, Blaze, Boost, Fuel, Feast"
)

// GenerationRequest is the rendered prompt plus the constraints it encodes.
type GenerationRequest struct {
	Prompt      string           `json:"prompt"`
	Constraints menu.Constraints `json:"constraints"`
}

// Render builds the generation prompt. The ingredient block is embedded
// verbatim; money bounds use two decimals, everything else as given.
func Render(c menu.Constraints, ingredientBlock string) GenerationRequest {
	r := strings.NewReplacer(
		"{batch_size}", strconv.Itoa(c.BatchSize),
		"{dietary}", c.Dietary,
		"{energy_min}", c.EnergyMin.String(),
		"{price_min}", c.PriceMin.StringFixed(2),
		"{price_max}", c.PriceMax.StringFixed(2),
		"{weight_min}", c.WeightMin.String(),
		"{weight_max}", c.WeightMax.String(),
		"{items_min}", strconv.Itoa(c.ItemsMin),
		"{items_max}", strconv.Itoa(c.ItemsMax),
		"{cuisine_cues}", cuisineCues,
		"{suffixes}", nameSuffixes,
	)

	prompt := r.Replace(promptHead) + ingredientBlock + r.Replace(promptTail)
	return GenerationRequest{Prompt: prompt, Constraints: c}
}

const promptHead = `
You are a **school-lunch menu generator**. Produce exactly {batch_size} menus using ONLY the ingredients listed below.
Pick quantities so every menu meets **all numeric constraints**. Output **valid JSON only**.

### Hard Constraints (apply to EACH menu)
- Total energy: **≥ {energy_min} kJ**
- Total cost: **> {price_min} and ≤ {price_max} NZD**
- Total weight: **{weight_min}–{weight_max} g**
- Ingredient count: **{items_min}–{items_max} items**
- Dietary type: **{dietary}** (only use ingredients that comply)
- Use **names exactly as listed** (case and spelling). **Do not invent** ingredients.

### Composition Rules
- Include **one primary carb** (Rice / Pasta / Potato / Sweet Potato / Bread if present).
- Include **one primary protein** (e.g. Chicken Breast, Beef Mince, Pork Loin, Salmon, Shrimp, Egg or Tofu).
  - Vegetarian: no meat or seafood. Vegan: no meat/seafood/egg/dairy. Halal: no pork. Gluten-free: no Flour/Pasta.
- Add **1–3 vegetables** for balance (e.g. Broccoli, Carrot, Onion, Spinach, Mushroom, Bell Pepper, Cabbage, Corn, Peas, Tomato, Lettuce, Cucumber, Zucchini).
- Optionally add **a small energy booster** (Olive Oil 5–12 g, or Cheddar Cheese 10–20 g if allowed) to reach kJ.

### Quantity Guidelines (pick within ranges, then fine-tune)
- Carb base: **Rice 150–220 g** (cooked) / **Pasta (dry) 70–100 g** / **Potato 180–260 g** / **Sweet Potato 160–240 g**
- Protein: **Chicken/Beef/Pork 90–150 g**, **Salmon 80–120 g**, **Shrimp 90–140 g**, **Tofu 140–220 g**, **Egg 50–100 g**
- Vegetables (each): **40–120 g**
- Boosters: **Olive Oil 5–12 g**, **Cheddar Cheese 10–20 g** (only if dietary allows)

### Batch Diversity
Across the {batch_size} menus:
- Mix cuisines: {cuisine_cues}.
- Vary bases (rice/pasta/potato) and proteins. **Never repeat the exact same ingredient set**.
- Names and descriptions must be distinct.

### Naming (audience: 13–19)
- English, Title Case, **3–6 words**.
- End with **one** of: {suffixes}.
- Optionally include a cuisine cue (e.g. Teriyaki, Tex-Mex, Māori, Italian, Sichuan).
- No boring "X with Y" patterns.

### Description
- **≤ 16 words**, hype-y but clear (e.g. "crispy tofu, miso glaze, veggie crunch").

### Provided Ingredients
Format per line: name, price_per_100g, energy_kj_per_100g
`

const promptTail = `

### Output (JSON only)
{
  "menus": [
    {
      "meal_name": "string",
      "description": "string (≤16 words)",
      "dietary": "{dietary}",
      "items": [
        { "name": "IngredientName", "quantity_g": int }
      ]
    }
  ]
}

### Validation Before You Output (think silently, then output JSON)
For each menu:
1) Compute **weight** (sum of quantity_g). Must be within **{weight_min}–{weight_max} g**.
2) Compute **energy_kj** = Σ(ingredient.energy_kj_per_100g × quantity_g / 100). Must be **≥ {energy_min}**.
3) Compute **cost_nzd** = Σ(ingredient.price_per_100g × quantity_g / 100). Must be **> {price_min} and ≤ {price_max}**.
4) If any check fails, **adjust quantities** in this order:
   - First, adjust the **carb base** ±10–30 g.
   - Then, adjust the **protein** ±10–20 g.
   - If energy is low, add a **booster** (Olive Oil +2–5 g) if allowed; if cost is too high, reduce the most expensive item first.
   - Keep total weight within range.
5) Make sure ingredient names **exactly match** the list, comply with **{dietary}**, and each menu uses **{items_min}–{items_max} items**.

Return **only** the final JSON. No comments or extra text.
`

// Rejection is a candidate the validator turned down, fed back on refinement.
type Rejection struct {
	MealName string
	Reason   string
}

// WithFeedback appends the rejected candidates and their reasons to req.
func WithFeedback(req GenerationRequest, rejected []Rejection) GenerationRequest {
	if len(rejected) == 0 {
		return req
	}

	var b strings.Builder
	b.WriteString(req.Prompt)
	b.WriteString("\n### Rejected Last Round\n")
	b.WriteString("These menus failed validation. Do not repeat them; apply the adjustment order above.\n")
	for _, r := range rejected {
		fmt.Fprintf(&b, "- %s: %s\n", r.MealName, r.Reason)
	}

	return GenerationRequest{Prompt: b.String(), Constraints: req.Constraints}
}

var (
	reBatch   = regexp.MustCompile(`Produce exactly (\d+) menus`)
	reEnergy  = regexp.MustCompile(`Total energy: \*\*≥ ([0-9.]+) kJ\*\*`)
	reCost    = regexp.MustCompile(`Total cost: \*\*> ([0-9.]+) and ≤ ([0-9.]+) NZD\*\*`)
	reWeight  = regexp.MustCompile(`Total weight: \*\*([0-9.]+)–([0-9.]+) g\*\*`)
	reItems   = regexp.MustCompile(`Ingredient count: \*\*(\d+)–(\d+) items\*\*`)
	reDietary = regexp.MustCompile(`Dietary type: \*\*(.+?)\*\*`)
)

// ParseConstraints reads the hard constraints back out of a rendered prompt.
func ParseConstraints(prompt string) (menu.Constraints, error) {
	var c menu.Constraints

	find := func(re *regexp.Regexp, want int) ([]string, error) {
		m := re.FindStringSubmatch(prompt)
		if len(m) != want+1 {
			return nil, fmt.Errorf("prompt has no match for %s", re)
		}
		return m[1:], nil
	}

	m, err := find(reBatch, 1)
	if err != nil {
		return c, err
	}
	if c.BatchSize, err = strconv.Atoi(m[0]); err != nil {
		return c, err
	}

	if m, err = find(reDietary, 1); err != nil {
		return c, err
	}
	c.Dietary = m[0]

	if m, err = find(reEnergy, 1); err != nil {
		return c, err
	}
	if c.EnergyMin, err = decimal.NewFromString(m[0]); err != nil {
		return c, err
	}

	if m, err = find(reCost, 2); err != nil {
		return c, err
	}
	if c.PriceMin, err = decimal.NewFromString(m[0]); err != nil {
		return c, err
	}
	if c.PriceMax, err = decimal.NewFromString(m[1]); err != nil {
		return c, err
	}

	if m, err = find(reWeight, 2); err != nil {
		return c, err
	}
	if c.WeightMin, err = decimal.NewFromString(m[0]); err != nil {
		return c, err
	}
	if c.WeightMax, err = decimal.NewFromString(m[1]); err != nil {
		return c, err
	}

	if m, err = find(reItems, 2); err != nil {
		return c, err
	}
	if c.ItemsMin, err = strconv.Atoi(m[0]); err != nil {
		return c, err
	}
	if c.ItemsMax, err = strconv.Atoi(m[1]); err != nil {
		return c, err
	}

	return c, nil
}
