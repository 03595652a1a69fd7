// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供 OpenAI 兼容线协议类型与上游接入层。

# 概述

AgentWall 是透传代理：网关只理解与治理相关的字段（model、messages、
stream 以及 agentwall_* 扩展字段），其余请求体字段原样转发上游，
响应体字段原样回传调用方。本包定义承载这一语义的线协议类型。

# 核心类型

  - [Message]：单条对话消息，role/content 类型化，tool_calls、name、
    null 与分段 content 等其余字段逐字节透传
  - [ChatCompletionRequest]：入站请求体，未知字段经 Extra 透传
  - [ChatCompletionResponse]：上游响应体，未知字段经 Extra 透传
  - [StreamDelta]：流式分片（SSE data 帧的最小解析形态）

# 主要能力

- 透传保真：已知字段类型化，未知字段经 Extra 往返，转发体忠实于原始请求。
- 扩展剥离：agentwall_* 字段解析后从转发体中剔除，不泄漏给上游。
- 内容提取：LastUserContent / AssistantContent 服务循环检测与 DLP 扫描。

# 相关子包

- llm/router：模型名前缀路由与 Provider 端点解析。
- llm/upstream：上游 HTTP 客户端，JSON 与 SSE 流式两种转发形态。
*/
package llm
