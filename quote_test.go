package fifoq

import "testing"

func TestCommand(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"plain", []string{"gzip", "/var/tmp/big.log"}, "gzip /var/tmp/big.log"},
		{"spaces", []string{"cat", "my file.txt"}, "cat 'my file.txt'"},
		{"single quote", []string{"echo", "it's"}, `echo 'it'\''s'`},
		{"empty arg", []string{"printf", ""}, "printf ''"},
		{"metacharacters", []string{"echo", "$HOME;rm"}, "echo '$HOME;rm'"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := string(Command(tc.args...)); got != tc.want {
				t.Errorf("Command(%q) = %q, want %q", tc.args, got, tc.want)
			}
		})
	}
}
