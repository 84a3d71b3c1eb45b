package model

// TopicCount 话题计数
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// MonthCount 月度计数，Month 格式为 YYYY-MM
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Overview 统计概览
type Overview struct {
	Total    int          `json:"total"`
	Topics   []TopicCount `json:"topics"`
	Series   []MonthCount `json:"series"`
	Insights []string     `json:"insights"`
}

// CompareSide 国家对比的一侧
type CompareSide struct {
	Code  string `json:"code"`
	Value int    `json:"value"`
}

// Comparison 两个国家的指标对比
type Comparison struct {
	Metric string      `json:"metric"`
	Left   CompareSide `json:"left"`
	Right  CompareSide `json:"right"`
}

// TopicInsight 根据话题排行生成一条洞察文本
// topics 需已按计数倒序排列
func TopicInsight(topics []TopicCount) []string {
	if len(topics) == 0 || topics[0].Topic == "" {
		return []string{"Add more posts to see trends."}
	}
	return []string{topics[0].Topic + " is currently the most active topic."}
}
