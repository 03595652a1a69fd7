// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package metrics 提供网关内部 Prometheus 指标收集。
// 仅供本仓库内部使用，不对外导出。
package metrics
