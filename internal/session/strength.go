package session

var strengthLabels = [...]string{"Very Weak", "Weak", "Fair", "Good", "Strong"}

type Strength struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// PasswordStrength sums five independent checks. It is feedback only and
// never gates registration.
func PasswordStrength(password string) Strength {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}

	score := 0
	for _, ok := range []bool{len([]rune(password)) >= MinPasswordLength, lower, upper, digit, symbol} {
		if ok {
			score++
		}
	}
	return Strength{Score: score, Label: strengthLabel(score)}
}

// strengthLabel indexes the table by score; a perfect score of 5 caps at
// "Strong" instead of falling off the end.
func strengthLabel(score int) string {
	switch {
	case score <= 0:
		return strengthLabels[0]
	case score >= 5:
		return strengthLabels[len(strengthLabels)-1]
	}
	return strengthLabels[score]
}
