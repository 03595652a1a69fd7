// Copyright (c) AgentWall Authors.
// Licensed under the MIT License.

/*
Package types 提供 AgentWall 网关的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 firewall、api、llm 等
上层模块提供统一的错误契约，以避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记
  - WireType          — OpenAI 兼容错误响应中的 type 字段取值

# 主要能力

  - 错误构造：NewError / WithDetail / WithHTTPStatus / WithRetryable / WithProvider
  - 线协议映射：WireTypeFor 将内部错误码映射为对外 type 字段
*/
package types
