// 版权所有 2026 AgentWall Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 loopdetect 检测 Agent 陷入循环的行为模式。

# 检测优先级（先命中先返回）

 1. 完全重复的 prompt（归一化 MD5 对比）→ 置信度 1.0
 2. 完全重复的 response → 置信度 1.0
 3. 高相似 prompt（Jaccard 词集相似度 ≥ 阈值，默认 0.95）→ 置信度 = 相似度
 4. 振荡模式（最近四个 prompt 形成 A-B-A-B）→ 置信度 0.9

检测器是纯内存计算，对 5 条环形历史与 ≤4KB prompt 在 1ms 内完成。
当前 prompt 不在检查前写入历史环，只在该步完成后追加。
*/
package loopdetect
