// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 api 定义网关对外 HTTP 表面的公共类型：OpenAI 兼容响应上合并的
AgentWall 信封（run_id、step、开销、成本等治理元数据），以及
Run 状态查询接口的视图结构。

处理器实现见子包 handlers。
*/
package api
