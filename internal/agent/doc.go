// Package agent 实现自动结算代理的核心循环：按固定间隔发现链上
// 角色对象、读取其状态、用纯函数判定是否有到期支付或过期清算，
// 并在需要时签名提交结算交易。
//
// 循环采用丢弃式调度：到点时上一轮仍在执行则跳过本次触发，保证
// 任一时刻最多一轮在跑。判定的优先级是过期清算高于到期支付。
package agent
