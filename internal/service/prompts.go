package service

import "fmt"

// 足球子命令的提示词构造函数。
// 每个函数都是纯函数：解析出的参数进、完整提示词出，
// 结果直接交给 ChatService.Ask 这一统一入口处理。

// PlayerPrompt 构造球员资料查询的提示词。
func PlayerPrompt(name string) string {
	return fmt.Sprintf(`⚽ 介绍一下足球运动员 %s：

📊 基本信息：
- 全名与年龄
- 现效力俱乐部与场上位置
- 球衣号码

⚽ 生涯数据（使用已知的最新数据）：
- 进球与助攻
- 荣誉与奖杯
- 效力过的俱乐部

💰 补充：
- 大致身价
- 技术特点

⚠️ 如果数据可能不准确，请注明！`, name)
}

// ClubPrompt 构造俱乐部资料查询的提示词。
func ClubPrompt(name string) string {
	return fmt.Sprintf(`⚽ 介绍一下俱乐部 %s：

🏟️ 基本信息：
- 所在国家与联赛
- 主场球场
- 成立年份

👥 球队：
- 主教练
- 阵中球星（前五名）
- 队长

🏆 荣誉：
- 主要奖杯
- 近期成绩

⚠️ 使用已知的最新数据，如有变动请注明！`, name)
}

// ComparePrompt 构造两名球员对比的提示词。
func ComparePrompt(playerA, playerB string) string {
	return fmt.Sprintf(`⚽ 对比两名足球运动员：

🔵 %s  VS  🔴 %s

📊 按以下维度对比：

1️⃣ 生涯数据
   - 进球与助攻
   - 出场次数

2️⃣ 荣誉成就
   - 团队冠军
   - 个人奖项（金球奖等）

3️⃣ 技术能力
   - 各自强项
   - 比赛风格

4️⃣ 市场价值
   - 大致身价

🎯 结论：谁更强？为什么？

⚠️ 使用已知数据，不确定的地方请注明！`, playerA, playerB)
}

// MatchPrompt 构造比赛对阵介绍的提示词。
func MatchPrompt(fixture string) string {
	return fmt.Sprintf(`⚽ 介绍一下 %s 这场对阵：

📊 交锋历史：
- 历史战绩（大致即可）
- 最令人印象深刻的比赛
- 谁赢得更多

⚡ 两队情况：
- 近期状态（如果知道）
- 双方关键球员
- 各自强弱项

🎯 趣闻：
- 双方交锋纪录
- 效力过两队的知名球员

⚠️ 使用已知数据！`, fixture)
}

// PredictPrompt 构造比赛预测的提示词。
func PredictPrompt(fixture string) string {
	return fmt.Sprintf(`⚽ 预测一下 %s 的赛果：

📊 球队分析：
- 两队整体实力
- 近期状态（如果知道）
- 关键球员
- 交锋历史

🎯 预测：
- 可能比分（给 2-3 个）
- 最可能的结果（主胜/平/客胜）
- 可能影响结果的关键因素

⚠️ 这是基于常识的娱乐性预测！
赛前请以最新数据为准！`, fixture)
}
