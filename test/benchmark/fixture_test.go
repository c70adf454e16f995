// Package benchmark contains Go benchmarks for the tokenizer, the TF-IDF
// index and the end-to-end recommendation pipeline, measuring throughput and
// allocation behaviour over synthetic catalogs.
package benchmark

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
)

var (
	cuisines = []string{"mediterranean", "ramen", "tacos", "sushi", "pho", "pizza", "burgers", "korean bbq", "thai", "indian"}
	menus    = []string{
		"chicken gyro platter falafel hummus",
		"tonkotsu ramen spicy miso gyoza",
		"carne asada al pastor burrito horchata",
		"salmon nigiri spicy tuna roll miso soup",
		"beef pho spring rolls banh mi",
		"margherita pepperoni garlic knots",
		"double cheeseburger fries milkshake",
		"bulgogi galbi kimchi fried rice",
		"pad thai green curry mango sticky rice",
		"butter chicken naan samosa biryani",
	}
	tagSets = [][]catalog.DietaryTag{
		{catalog.TagHalal},
		{},
		{catalog.TagVegan, catalog.TagVegetarian},
		{catalog.TagPescatarian},
		{},
		{catalog.TagVegetarian, catalog.TagGlutenFree},
		{},
	}
	hours = []string{"10:00 AM - 11:00 PM", "11am-9pm", "Closed", "", "Open 24 hours"}
)

// syntheticCatalog returns n valid records scattered around campus.
func syntheticCatalog(n int) []catalog.Record {
	records := make([]catalog.Record, n)
	for i := range records {
		rating := 2.5 + float64(i%25)/10
		price := i%4 + 1
		lat := 33.6405 + float64(i%40-20)*0.002
		lng := -117.8443 + float64(i%30-15)*0.002
		records[i] = catalog.Record{
			ID:          fmt.Sprintf("r-%d", i),
			Name:        fmt.Sprintf("%s house %d", cuisines[i%len(cuisines)], i),
			DietaryTags: tagSets[i%len(tagSets)],
			Rating:      &rating,
			PriceLevel:  &price,
			Lat:         &lat,
			Lng:         &lng,
			HoursText:   hours[i%len(hours)],
			Source:      catalog.SourceYelp,
			Cuisines:    []string{cuisines[i%len(cuisines)]},
			MenuText:    menus[(i/3)%len(menus)],
		}
	}
	return records
}
