// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 handlers 实现网关的 HTTP 处理器。

chat.go 承载核心代理管线：身份校验 → 防火墙准入 → DLP 前扫 →
循环预检 → 路由 → 上游调用（JSON 或 SSE 透传）→ DLP 后扫 →
循环后检 → 预算闸 → 状态持久化 → 遥测 → 信封。

health.go 提供存活/就绪/详细健康检查，runs.go 提供 Run 状态
查询与手工终止，common.go 提供统一的 OpenAI 风格错误体输出。
*/
package handlers
