package validate_test

import (
	"testing"

	"github.com/ardanlabs/powchain/foundation/validate"
)

func Test_Check(t *testing.T) {
	type mineRequest struct {
		Text string `json:"text" validate:"required,max=8"`
	}

	type table struct {
		name  string
		val   any
		field string
	}

	tt := []table{
		{name: "valid", val: mineRequest{Text: "hello"}},
		{name: "missing", val: mineRequest{}, field: "text"},
		{name: "toolong", val: &mineRequest{Text: "0123456789"}, field: "text"},
		{name: "slice", val: []string{"a"}},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			err := validate.Check(tst.val)

			if tst.field == "" {
				if err != nil {
					t.Fatalf("Should pass validation: %s", err)
				}
				return
			}

			if !validate.IsFieldErrors(err) {
				t.Fatalf("Should get back field errors, got %v", err)
			}

			fields := validate.GetFieldErrors(err).Fields()
			if _, exists := fields[tst.field]; !exists {
				t.Logf("got: %v", fields)
				t.Logf("exp: %s", tst.field)
				t.Fatalf("Should report the json field name.")
			}
		}

		t.Run(tst.name, f)
	}
}
