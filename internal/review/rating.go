// internal/review/rating.go
package review

import "math"

// AggregateRating возвращает среднюю оценку, округленную до целого
// (половина округляется от нуля). Для пустого набора возвращает nil:
// у произведения без отзывов рейтинга нет, это не ноль.
func AggregateRating(scores []int) *int {
	if len(scores) == 0 {
		return nil
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	rating := int(math.Round(float64(sum) / float64(len(scores))))
	return &rating
}
