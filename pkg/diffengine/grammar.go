package diffengine

import "regexp"

// grammar is the minimal device-family command grammar validated against
// each generated line before it is accepted into a plan. Not exhaustive of
// every vendor's CLI — extend this table as new device families are added.
var grammar = []*regexp.Regexp{
	regexp.MustCompile(`^(no )?interfaces \S+(\.\d+)?( .+)?$`),
	regexp.MustCompile(`^(no )?network-services bridge-domain instance \S+ interface \S+$`),
}

func validGrammar(line string) bool {
	for _, re := range grammar {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
