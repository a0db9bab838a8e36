package strategy

// Vote 是单个指标对本周期的投票。
// 未启用的指标弃权 (VoteAbstain)，不参与聚合。
type Vote int

const (
	VoteAbstain Vote = iota
	VoteHold
	VoteBuy
	VoteSell
)

func (v Vote) String() string {
	switch v {
	case VoteBuy:
		return "buy"
	case VoteSell:
		return "sell"
	case VoteHold:
		return "hold"
	default:
		return "abstain"
	}
}
