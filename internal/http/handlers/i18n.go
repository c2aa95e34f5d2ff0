package handlers

import "backdrop/internal/domain"

// Chinese translations for the caller-visible error messages. Kinds with
// no entry fall through to the English message.
var zhMessages = map[domain.Kind]string{
	domain.KindUnauthenticated:     "请先登录",
	domain.KindForbiddenTier:       "本月额度已用完，请升级套餐",
	domain.KindInvalidInput:        "请求无效，请检查上传的图片",
	domain.KindServiceUnconfigured: "服务暂时不可用，请稍后再试",
	domain.KindUpstreamAuth:        "处理服务出现问题，请联系客服",
	domain.KindUpstreamRateLimited: "处理服务繁忙，请稍后再试",
	domain.KindUpstreamBilling:     "处理服务暂时不可用，请稍后再试",
	domain.KindUpstreamModel:       "无法处理这张图片，请换一张试试",
	domain.KindUpstreamFetch:       "获取处理结果失败，请重试",
	domain.KindInternal:            "服务器内部错误",
}

func localizeMessage(locale string, kind domain.Kind, message string) string {
	if locale != "zh" {
		return message
	}
	if zh, ok := zhMessages[kind]; ok {
		return zh
	}
	return message
}
