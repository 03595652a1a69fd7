// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 pricing 提供模型价格表与请求成本计算能力，所有金额均使用
定点十进制（shopspring/decimal），禁止浮点运算。

# 概述

价格表是启动时加载的单一源码字面量（每百万 Token 的输入/输出单价），
不做任何网络拉取。查找优先精确匹配模型名，未命中时回退默认价格。

# 核心能力

  - Cost：按 (模型, prompt tokens, completion tokens) 计算美元成本。
  - EstimateCompletionTokens：流式响应缺少 usage 时按字数 × 1.3 估算。
  - EstimatePromptTokens：基于 tiktoken 的 prompt Token 估算，
    编码不可用时回退到字数估算。
*/
package pricing
