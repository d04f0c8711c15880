package utils

// Tier 由积分实时计算，不落库
type Tier struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

var (
	TierNovice      = Tier{Name: "Novice", Weight: 0.5}
	TierContributor = Tier{Name: "Contributor", Weight: 0.75}
	TierRegular     = Tier{Name: "Regular", Weight: 1.0}
	TierExpert      = Tier{Name: "Expert", Weight: 1.5}
	TierMaster      = Tier{Name: "Master", Weight: 2.0}
)

// TierFor 根据积分返回投票权重等级
func TierFor(points int) Tier {
	switch {
	case points > 1000:
		return TierMaster
	case points > 500:
		return TierExpert
	case points > 100:
		return TierRegular
	case points > 50:
		return TierContributor
	default:
		return TierNovice
	}
}
