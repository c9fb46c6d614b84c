package api

import "testing"

func TestQueryOmitsUnsetFields(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"empty", ProductListParams{}.Encode(), ""},
		{"page only", ProductListParams{Page: Int(2)}.Encode(), "?page=2"},
		{"zero values kept", ProductListParams{Page: Int(0), InStock: Bool(false)}.Encode(), "?page=0&in_stock=false"},
		{"insertion order", SearchParams{Query: String("pixel 9"), MinPrice: Float(99.5), Status: String("active")}.Encode(),
			"?query=pixel+9&min_price=99.5&status=active"},
		{"page params", PageParams{Limit: Int(10), SortOrder: String("desc")}.Encode(), "?limit=10&sort_order=desc"},
		{"escaping", SearchParams{Query: String("a&b=c")}.Encode(), "?query=a%26b%3Dc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("got %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func TestDecodeNormalizesStatus(t *testing.T) {
	env, err := decode[[]string](404, []byte(`{"message":"gone"}`))
	if err != nil {
		t.Fatal(err)
	}
	if env.Status != StatusError || env.OK() || env.HasData {
		t.Fatalf("got %+v", env)
	}
	env, err = decode[[]string](200, []byte(`{"data":["a"]}`))
	if err != nil || !env.OK() || !env.HasData || env.Data[0] != "a" {
		t.Fatalf("got %+v %v", env, err)
	}
	if _, err := decode[any](502, nil); err == nil {
		t.Fatal("empty error body should fail")
	}
}
