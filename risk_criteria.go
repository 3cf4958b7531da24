package main

type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskBorderline
	RiskInDanger
	RiskEarlyOnset
	RiskNotApplicable
)

func (r RiskLevel) String() string {
	switch r {
	case RiskBorderline:
		return "Borderline"
	case RiskInDanger:
		return "In danger"
	case RiskEarlyOnset:
		return "Early onset"
	case RiskNotApplicable:
		return "Not applicable"
	default:
		return "None"
	}
}

func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func classifyRisk(age int, gender string, triggerCount int) RiskLevel {
	/*
	 * No triggers -> None
	 * Older than 30:
	 *   2 to 5 triggers -> Borderline
	 *   6 or 7 triggers -> In danger
	 *   8 or more       -> Early onset
	 * 30 or younger, male:
	 *   3 or 4 triggers -> In danger
	 *   5 or more       -> Early onset
	 * 30 or younger, female:
	 *   4 to 6 triggers -> In danger
	 *   7 or more       -> Early onset
	 *
	 * Any other combination (1 trigger over 30, 1-2 triggers for young males,
	 * 1-3 for young females, unknown gender) has no rule and yields None.
	 */

	if triggerCount == 0 {
		return RiskNone
	}

	if age > 30 {
		switch {
		case triggerCount >= 2 && triggerCount <= 5:
			return RiskBorderline
		case triggerCount == 6 || triggerCount == 7:
			return RiskInDanger
		case triggerCount >= 8:
			return RiskEarlyOnset
		}
		return RiskNone
	}

	switch gender {
	case "M":
		switch {
		case triggerCount >= 3 && triggerCount < 5:
			return RiskInDanger
		case triggerCount >= 5:
			return RiskEarlyOnset
		}
	case "F":
		switch {
		case triggerCount >= 4 && triggerCount < 7:
			return RiskInDanger
		case triggerCount >= 7:
			return RiskEarlyOnset
		}
	}

	return RiskNone
}
