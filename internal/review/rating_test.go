package review

import "testing"

func TestAggregateRating(t *testing.T) {
	cases := []struct {
		name   string
		scores []int
		want   *int
	}{
		{"no reviews", nil, nil},
		{"empty slice", []int{}, nil},
		{"single", []int{7}, intPtr(7)},
		{"exact mean", []int{5, 3}, intPtr(4)},
		{"rounds half up", []int{5, 6}, intPtr(6)},
		{"rounds down", []int{1, 1, 2}, intPtr(1)},
		{"rounds up", []int{1, 2, 2}, intPtr(2)},
		{"bounds", []int{1, 10}, intPtr(6)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AggregateRating(tc.scores)
			switch {
			case tc.want == nil && got != nil:
				t.Errorf("got %d, want nil", *got)
			case tc.want != nil && got == nil:
				t.Errorf("got nil, want %d", *tc.want)
			case tc.want != nil && *got != *tc.want:
				t.Errorf("got %d, want %d", *got, *tc.want)
			}
		})
	}
}

func intPtr(v int) *int { return &v }
