// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 logstore 提供请求遥测落盘：有界队列 + 单一后台 worker，
绝不阻塞请求热路径，绝不因日志失败影响请求。

# 遥测汇（Sink）

Push 非阻塞入队；队列满时丢弃最旧一条并计数。worker 在
队列深度 ≥ LOG_BATCH_SIZE（默认 100）或距上次刷新 ≥
LOG_FLUSH_INTERVAL（默认 5s）时，把批次以 JSON-per-line
（JSONEachRow）POST 到分析库 HTTP 接口。刷新失败时批次重新
入队（上限 10000 条）并标记不健康，成功后恢复。

# 仪表盘 Shipper

独立的进程内 fire-and-forget 投递：容量 1000 的队列，
逐条 POST 到仪表盘内部接口（X-Internal-Secret 鉴权），
溢出直接丢弃。
*/
package logstore
