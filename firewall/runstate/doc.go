// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 runstate 维护 Agent Run 级别的治理状态。

# 概述

逐请求网关只看到单次调用；AgentWall 以 Run（一次完整的 Agent 任务，
包含多个步骤）为治理粒度。每个 Run 的状态以 JSON 存于共享 KV
（Redis），键为 agentwall:run:<run-id>，每次写入将 TTL 重置为 24 小时。

# 准入逻辑

ProcessStep 是核心治理入口，检查顺序固定：

 1. Run 是否已被终止（killed）
 2. 步数是否达到上限
 3. Run 是否超时
 4. 累计成本是否达到预算

全部通过后步数加一并持久化。prompt 不在准入时写入历史环，
只在 CompleteStep 时追加（保证循环检测只与"之前的"步骤比较）。

# 降级模式

Redis 不可达时进入无记忆降级模式：每步按全新零状态 Run 准入，
治理退化为单请求限制，记录日志但不影响可用性。

# 并发

存储不做事务，读-改-写接受 last-writer-wins 语义；同一 Run 的
步骤由调用方（Agent 框架）串行化，竞争在实践中罕见。
*/
package runstate
