// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 identity 负责调用方身份：从请求中提取 API Key（Authorization Bearer、
X-API-Key 头、api_key 查询参数，按此优先级），调用控制面内部接口校验，
并返回 (user, team, api-key-id, 限额)。

校验结果在 Redis 缓存 5 分钟；并发的同 Key 校验经 singleflight 合并为
一次后端调用。控制面不可达或 Key 无效时返回错误，调用方以 401 响应。
*/
package identity
