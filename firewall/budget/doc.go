// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 budget 实现预算闸门：对 (Run 累计成本, 当日支出, 当月支出, 策略)
做纯函数判定，返回是否终止 Run 及超限类别。

判定优先级固定：per-run → daily（含增量）→ monthly（含增量），
比较采用严格大于（刚好等于限额不触发）。auto_kill 策略开关决定
超限时是终止还是仅告警。所有金额为定点十进制。
*/
package budget
