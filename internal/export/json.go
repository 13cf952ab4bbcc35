package export

import (
	"encoding/json"
	"fmt"

	"mealcrafter/internal/recipe"
)

// JSON renders the record as indented JSON, the same shape the repository
// stores.
func JSON(rec recipe.Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}
