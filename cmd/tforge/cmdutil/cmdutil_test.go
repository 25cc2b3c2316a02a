package cmdutil

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestExitCode(t *testing.T) {
	if got := ExitCode(errors.New("plain")); got != 1 {
		t.Errorf("ExitCode(plain) = %d, want 1", got)
	}
	if got := ExitCode(Exit(2, errors.New("validation"))); got != 2 {
		t.Errorf("ExitCode(Exit(2)) = %d, want 2", got)
	}
	if got := ExitCode(fmt.Errorf("wrap: %w", Exit(2, errors.New("inner")))); got != 2 {
		t.Errorf("ExitCode(wrapped) = %d, want 2", got)
	}
	if Exit(2, nil) != nil {
		t.Error("Exit(2, nil) != nil")
	}
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"msm1", []string{"msm1"}},
		{"msm1,msm2", []string{"msm1", "msm2"}},
		{" msm1 , msm2 ,", []string{"msm1", "msm2"}},
		{",,", nil},
	}
	for _, tc := range cases {
		if got := SplitList(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
