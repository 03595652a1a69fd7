// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 dlp 提供敏感数据检测与脱敏引擎（Data Loss Prevention）。

# 概述

引擎对输入文本应用一组编译好的正则模式（API 密钥、信用卡、PII、
JWT、私钥等），并根据配置的动作模式处理命中结果：

  - mask：用模式各自的替换模板替换命中内容，返回脱敏文本。
  - block：存在任何命中即拒绝请求。
  - shadow_log：只记录命中事实，原样放行，绝不修改文本。

信用卡候选必须额外通过 Luhn 校验才算命中，以减少纯数字串的误报。
所有模式在进程启动时编译一次，扫描为纯内存操作。
*/
package dlp
