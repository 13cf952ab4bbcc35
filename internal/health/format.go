package health

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Section caps keep the breakdown readable even when the model rambles.
const (
	maxVitamins   = 4
	maxMinerals   = 4
	maxCompounds  = 3
	maxConditions = 4
	maxTips       = 5
	maxPairings   = 3
)

// formatBreakdown renders the analysis as markdown. Section order is fixed:
// overview, nutritional highlights, healthy aspects, watch points, dietary
// considerations, tips, pairings.
func formatBreakdown(analysis *rawAnalysis, score float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Health Score: %s/10**\n\n", strconv.FormatFloat(score, 'f', -1, 64))

	if analysis.Summary != "" {
		fmt.Fprintf(&b, "📊 **Overview**: %s\n\n", analysis.Summary)
	}

	if nh := analysis.NutritionalHighlights; nh != nil {
		b.WriteString("### 🏆 Nutritional Highlights\n\n")

		if len(nh.Vitamins) > 0 || len(nh.Minerals) > 0 {
			b.WriteString("**Key Vitamins & Minerals:**\n")
			for _, v := range capped(nh.Vitamins, maxVitamins) {
				fmt.Fprintf(&b, "• %s\n", v)
			}
			for _, m := range capped(nh.Minerals, maxMinerals) {
				fmt.Fprintf(&b, "• %s\n", m)
			}
			b.WriteString("\n")
		}

		if m := nh.Macros; m != nil {
			b.WriteString("**Macronutrient Analysis:**\n")
			if m.ProteinQuality != "" {
				fmt.Fprintf(&b, "• **Protein**: %s\n", m.ProteinQuality)
			}
			if m.CarbQuality != "" {
				fmt.Fprintf(&b, "• **Carbs**: %s\n", m.CarbQuality)
			}
			if m.FatQuality != "" {
				fmt.Fprintf(&b, "• **Fats**: %s\n", m.FatQuality)
			}
			b.WriteString("\n")
		}

		if len(nh.SpecialCompounds) > 0 {
			b.WriteString("**Beneficial Compounds:**\n")
			for _, c := range capped(nh.SpecialCompounds, maxCompounds) {
				fmt.Fprintf(&b, "• %s\n", c)
			}
			b.WriteString("\n")
		}
	}

	if len(analysis.HealthyAspects) > 0 {
		b.WriteString("### ✅ What Makes It Healthy\n\n")
		for _, asp := range analysis.HealthyAspects {
			fmt.Fprintf(&b, "• **%s**: %s\n", asp.Title, asp.Description)
		}
		b.WriteString("\n")
	}

	if len(analysis.WatchPoints) > 0 {
		b.WriteString("### ⚠️ What to Watch Out For\n\n")
		for _, wp := range analysis.WatchPoints {
			fmt.Fprintf(&b, "• **%s**: %s\n", wp.Ingredient, wp.Concern)
		}
		b.WriteString("\n")
	}

	if d := analysis.DietaryConsiderations; d != nil {
		b.WriteString("### 🍽️ Dietary Considerations\n\n")
		if len(d.SuitableFor) > 0 {
			fmt.Fprintf(&b, "**Suitable for:** %s\n\n", strings.Join(d.SuitableFor, ", "))
		}
		if len(d.Conditions) > 0 {
			b.WriteString("**Health Condition Recommendations:**\n")
			for _, c := range d.Conditions[:min(len(d.Conditions), maxConditions)] {
				fmt.Fprintf(&b, "• **%s**: %s\n", titleCase(c.Condition), c.Advice)
			}
			b.WriteString("\n")
		}
	}

	if len(analysis.ImprovementTips) > 0 {
		b.WriteString("### 💡 Tips to Make It Healthier\n\n")
		for _, tip := range analysis.ImprovementTips[:min(len(analysis.ImprovementTips), maxTips)] {
			if text := itemText(tip, "tip", "description"); text != "" {
				fmt.Fprintf(&b, "• %s\n", text)
			}
		}
		b.WriteString("\n")
	}

	if len(analysis.MealPairingSuggestions) > 0 {
		b.WriteString("### 🥘 Suggested Pairings\n\n")
		for _, pairing := range analysis.MealPairingSuggestions[:min(len(analysis.MealPairingSuggestions), maxPairings)] {
			if text := itemText(pairing, "suggestion", "pairing", "description"); text != "" {
				fmt.Fprintf(&b, "• %s\n", text)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func capped(items []string, n int) []string {
	return items[:min(len(items), n)]
}

// itemText normalizes one list entry that the model may return as a plain
// string, a JSON object, or a string that merely looks like a Python dict.
// The first matching key wins; an object with no known key contributes its
// first value in sorted-key order.
func itemText(raw json.RawMessage, keys ...string) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return dictShapedText(s, keys)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range keys {
			if v, ok := obj[key]; ok {
				return fmt.Sprintf("%v", v)
			}
		}
		if len(obj) > 0 {
			names := make([]string, 0, len(obj))
			for name := range obj {
				names = append(names, name)
			}
			sort.Strings(names)
			return fmt.Sprintf("%v", obj[names[0]])
		}
	}

	return strings.Trim(string(raw), `"`)
}

var (
	dictPrefixRe = regexp.MustCompile(`^\{['"]?\w+['"]?:\s*['"]?`)
	dictSuffixRe = regexp.MustCompile(`['"]?\}$`)
)

// dictShapedText recovers the payload from strings like
// "{'tip': 'Use less oil'}" that models sometimes emit instead of the value.
func dictShapedText(s string, keys []string) string {
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return s
	}
	for _, key := range keys {
		pattern := regexp.MustCompile(`'` + regexp.QuoteMeta(key) + `':\s*'([^']+)'`)
		if m := pattern.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	s = dictPrefixRe.ReplaceAllString(s, "")
	s = dictSuffixRe.ReplaceAllString(s, "")
	return strings.Trim(s, `'"`)
}

// titleCase capitalizes each underscore- or space-separated word, so the
// condition key "heart_disease" renders as "Heart Disease".
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
